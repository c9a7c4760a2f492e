package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"gorm.io/datatypes"
)

// HospitalModel is the persistence model for the hospitals table.
type HospitalModel struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	Name            string  `gorm:"type:varchar(255);not null"`
	Address         string  `gorm:"type:varchar(500);not null"`
	Phone           *string `gorm:"type:varchar(20)"`
	CreationBatchID *string `gorm:"type:varchar(36);index"`
	IsActive        bool    `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (HospitalModel) TableName() string {
	return "hospitals"
}

// BatchJobModel is the persistence model for batch_jobs. The outcome ledger
// is stored as JSONB in sys_custom_fields.
type BatchJobModel struct {
	ID                    int64            `gorm:"primaryKey;autoIncrement"`
	BatchID               string           `gorm:"type:varchar(36);uniqueIndex;not null"`
	TotalHospitals        int              `gorm:"not null"`
	ProcessedHospitals    int              `gorm:"not null;default:0"`
	FailedHospitals       int              `gorm:"not null;default:0"`
	Status                domain.JobStatus `gorm:"type:varchar(50);not null;default:'IN_PROGRESS'"`
	ProcessingTimeSeconds *float64
	Outcome               datatypes.JSON `gorm:"column:sys_custom_fields;type:jsonb;not null;default:'{}'"`
	CreatedAt             time.Time
}

func (BatchJobModel) TableName() string {
	return "batch_jobs"
}

func hospitalModelFromDomain(h *domain.Hospital) *HospitalModel {
	if h == nil {
		return nil
	}

	return &HospitalModel{
		ID:              h.ID,
		Name:            h.Name,
		Address:         h.Address,
		Phone:           h.Phone,
		CreationBatchID: h.CreationBatchID,
		IsActive:        h.IsActive,
		CreatedAt:       h.CreatedAt,
		UpdatedAt:       h.UpdatedAt,
	}
}

func hospitalModelToDomain(m *HospitalModel) *domain.Hospital {
	if m == nil {
		return nil
	}

	return &domain.Hospital{
		ID:              m.ID,
		Name:            m.Name,
		Address:         m.Address,
		Phone:           m.Phone,
		CreationBatchID: m.CreationBatchID,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func batchJobModelFromDomain(j *domain.BatchJob) (*BatchJobModel, error) {
	if j == nil {
		return nil, nil
	}

	outcome, err := json.Marshal(j.Outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch outcome: %w", err)
	}

	return &BatchJobModel{
		ID:                    j.ID,
		BatchID:               j.BatchID,
		TotalHospitals:        j.TotalHospitals,
		ProcessedHospitals:    j.ProcessedHospitals,
		FailedHospitals:       j.FailedHospitals,
		Status:                j.Status,
		ProcessingTimeSeconds: j.ProcessingTimeSeconds,
		Outcome:               datatypes.JSON(outcome),
		CreatedAt:             j.CreatedAt,
	}, nil
}

func batchJobModelToDomain(m *BatchJobModel) (*domain.BatchJob, error) {
	if m == nil {
		return nil, nil
	}

	var outcome domain.BatchOutcome
	if len(m.Outcome) > 0 {
		if err := json.Unmarshal(m.Outcome, &outcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal batch outcome: %w", err)
		}
	}

	return &domain.BatchJob{
		ID:                    m.ID,
		BatchID:               m.BatchID,
		TotalHospitals:        m.TotalHospitals,
		ProcessedHospitals:    m.ProcessedHospitals,
		FailedHospitals:       m.FailedHospitals,
		Status:                m.Status,
		ProcessingTimeSeconds: m.ProcessingTimeSeconds,
		Outcome:               outcome,
		CreatedAt:             m.CreatedAt,
	}, nil
}
