package domain

import (
	"fmt"
	"strings"
	"time"
)

// Hospital is the core registry entity. CreationBatchID links a record to the
// bulk-import batch that produced it; it is nil for hospitals created through
// the single-record endpoint.
type Hospital struct {
	ID              int64
	Name            string
	Address         string
	Phone           *string
	CreationBatchID *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (h *Hospital) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(h.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	return nil
}
