package domain

import (
	"errors"
	"testing"
)

func TestParseJobStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    JobStatus
		wantErr bool
	}{
		{name: "valid uppercase", input: "COMPLETED", want: JobStatusCompleted},
		{name: "valid lowercase with spaces", input: " in_progress ", want: JobStatusInProgress},
		{name: "completed with errors", input: "completed_with_errors", want: JobStatusCompletedWithErrors},
		{name: "invalid", input: "DONE", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseJobStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseJobStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseJobStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseJobStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	t.Parallel()

	if JobStatusInProgress.IsTerminal() {
		t.Fatal("IN_PROGRESS should not be terminal")
	}
	if !JobStatusCompleted.IsTerminal() {
		t.Fatal("COMPLETED should be terminal")
	}
	if !JobStatusCompletedWithErrors.IsTerminal() {
		t.Fatal("COMPLETED_WITH_ERRORS should be terminal")
	}
}

func TestBatchOutcomeSetRow(t *testing.T) {
	t.Parallel()

	var outcome BatchOutcome
	outcome.SetRow("General Hospital", RowSuccess(42))
	outcome.SetRow("row_3", RowFailure("Missing required fields. Name: , Address: Main St"))

	success, ok := outcome.Rows["General Hospital"]
	if !ok {
		t.Fatal("success row should be recorded")
	}
	if success.HospitalID == nil || *success.HospitalID != 42 {
		t.Fatalf("hospital id = %v, want 42", success.HospitalID)
	}
	if success.Error != nil {
		t.Fatalf("success row should not carry an error, got %q", *success.Error)
	}

	failure, ok := outcome.Rows["row_3"]
	if !ok {
		t.Fatal("failure row should be recorded")
	}
	if failure.Error == nil || *failure.Error == "" {
		t.Fatal("failure row should carry an error message")
	}
	if failure.HospitalID != nil {
		t.Fatalf("failure row should not carry a hospital id, got %d", *failure.HospitalID)
	}
}

func TestHospitalValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hospital Hospital
		wantErr  bool
	}{
		{name: "valid", hospital: Hospital{Name: "City Clinic", Address: "1 Elm St"}},
		{name: "missing name", hospital: Hospital{Address: "1 Elm St"}, wantErr: true},
		{name: "missing address", hospital: Hospital{Name: "City Clinic"}, wantErr: true},
		{name: "whitespace only name", hospital: Hospital{Name: "  ", Address: "1 Elm St"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.hospital.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestValidationErrorsUnwrap(t *testing.T) {
	t.Parallel()

	err := NewValidationErrors("CSV validation failed", []string{"Row 1: 'name' is required"})
	if !errors.Is(err, ErrValidation) {
		t.Fatal("ValidationErrors should unwrap to ErrValidation")
	}

	var verr *ValidationErrors
	if !errors.As(error(err), &verr) {
		t.Fatal("errors.As should extract *ValidationErrors")
	}
	if len(verr.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(verr.Errors))
	}
}
