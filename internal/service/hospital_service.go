package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"go.uber.org/zap"
)

// HospitalService covers the single-record CRUD surface. Records created here
// never carry a batch reference.
type HospitalService struct {
	hospitals repository.HospitalRepository
	logger    *zap.Logger
}

func NewHospitalService(hospitals repository.HospitalRepository, logger *zap.Logger) (*HospitalService, error) {
	if hospitals == nil {
		return nil, fmt.Errorf("hospital repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HospitalService{hospitals: hospitals, logger: logger}, nil
}

func (s *HospitalService) Create(ctx context.Context, hospital *domain.Hospital) (*domain.Hospital, error) {
	if hospital == nil {
		return nil, fmt.Errorf("%w: hospital is required", domain.ErrValidation)
	}

	hospital.Name = strings.TrimSpace(hospital.Name)
	hospital.Address = strings.TrimSpace(hospital.Address)
	hospital.Phone = normalizeOptionalString(hospital.Phone)
	hospital.CreationBatchID = nil

	if err := hospital.Validate(); err != nil {
		return nil, err
	}

	if err := s.hospitals.Create(ctx, hospital); err != nil {
		return nil, err
	}

	return hospital, nil
}

func (s *HospitalService) List(ctx context.Context) ([]domain.Hospital, error) {
	return s.hospitals.List(ctx)
}

func (s *HospitalService) GetByID(ctx context.Context, id int64) (*domain.Hospital, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: hospital id is required", domain.ErrValidation)
	}
	return s.hospitals.GetByID(ctx, id)
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
