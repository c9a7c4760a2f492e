package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"github.com/selimaydogdu/hospital-registry/internal/service"
)

type HospitalService interface {
	Create(ctx context.Context, hospital *domain.Hospital) (*domain.Hospital, error)
	List(ctx context.Context) ([]domain.Hospital, error)
	GetByID(ctx context.Context, id int64) (*domain.Hospital, error)
}

type BulkService interface {
	Submit(ctx context.Context, filename string, content []byte) (*service.SubmitResult, error)
	ValidateOnly(ctx context.Context, filename string, content []byte) (int, error)
	GetBatch(ctx context.Context, batchID string) (*service.BatchDetails, error)
	Activate(ctx context.Context, batchID string) (*domain.BatchJob, error)
	DeleteBatch(ctx context.Context, batchID string) error
}

type HospitalHandler struct {
	hospitals HospitalService
	bulk      BulkService
}

func NewHospitalHandler(hospitals HospitalService, bulk BulkService) (*HospitalHandler, error) {
	if hospitals == nil {
		return nil, fmt.Errorf("hospital service is required")
	}
	if bulk == nil {
		return nil, fmt.Errorf("bulk service is required")
	}
	return &HospitalHandler{hospitals: hospitals, bulk: bulk}, nil
}

func RegisterHospitalRoutes(router fiber.Router, hospitals HospitalService, bulk BulkService) error {
	h, err := NewHospitalHandler(hospitals, bulk)
	if err != nil {
		return err
	}

	router.Post("/hospitals", h.CreateHospital)
	router.Get("/hospitals", h.ListHospitals)
	router.Post("/hospitals/bulk", h.SubmitBulk)
	router.Post("/hospitals/bulk/validate", h.ValidateBulk)
	router.Get("/hospitals/batch/:batchId", h.GetBatch)
	router.Patch("/hospitals/batch/:batchId/activate", h.ActivateBatch)
	router.Delete("/hospitals/batch/:batchId", h.DeleteBatch)
	router.Get("/hospitals/:id", h.GetHospital)

	return nil
}

type createHospitalRequest struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Phone    *string `json:"phone"`
	IsActive bool    `json:"is_active"`
}

type hospitalResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Phone           *string   `json:"phone,omitempty"`
	CreationBatchID *string   `json:"creation_batch_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type submitBulkResponse struct {
	BatchID        string `json:"batch_id"`
	Status         string `json:"status"`
	TotalHospitals int    `json:"total_hospitals"`
	Message        string `json:"message"`
}

type validateBulkResponse struct {
	Message   string `json:"message"`
	TotalRows int    `json:"total_rows"`
}

type batchStatusResponse struct {
	BatchID               string              `json:"batch_id"`
	Status                string              `json:"status"`
	TotalHospitals        int                 `json:"total_hospitals"`
	ProcessedHospitals    int                 `json:"processed_hospitals"`
	FailedHospitals       int                 `json:"failed_hospitals"`
	ProcessingTimeSeconds float64             `json:"processing_time_seconds"`
	SysCustomFields       domain.BatchOutcome `json:"sys_custom_fields"`
	Hospitals             []hospitalResponse  `json:"hospitals"`
}

type activateBatchResponse struct {
	BatchID               string  `json:"batch_id"`
	Status                string  `json:"status"`
	TotalHospitals        int     `json:"total_hospitals"`
	ProcessedHospitals    int     `json:"processed_hospitals"`
	FailedHospitals       int     `json:"failed_hospitals"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	BatchActivated        bool    `json:"batch_activated"`
}

func (h *HospitalHandler) CreateHospital(c *fiber.Ctx) error {
	var req createHospitalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	hospital := domain.Hospital{
		Name:     strings.TrimSpace(req.Name),
		Address:  strings.TrimSpace(req.Address),
		Phone:    req.Phone,
		IsActive: req.IsActive,
	}

	created, err := h.hospitals.Create(c.Context(), &hospital)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toHospitalResponse(created))
}

func (h *HospitalHandler) ListHospitals(c *fiber.Ctx) error {
	hospitals, err := h.hospitals.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toHospitalResponses(hospitals))
}

func (h *HospitalHandler) GetHospital(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "hospital id must be an integer")
	}

	hospital, err := h.hospitals.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toHospitalResponse(hospital))
}

func (h *HospitalHandler) SubmitBulk(c *fiber.Ctx) error {
	filename, content, err := readUploadedFile(c)
	if err != nil {
		return err
	}

	result, err := h.bulk.Submit(c.Context(), filename, content)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(submitBulkResponse{
		BatchID:        result.BatchID,
		Status:         result.Status.String(),
		TotalHospitals: result.TotalHospitals,
		Message:        result.Message,
	})
}

func (h *HospitalHandler) ValidateBulk(c *fiber.Ctx) error {
	filename, content, err := readUploadedFile(c)
	if err != nil {
		return err
	}

	total, err := h.bulk.ValidateOnly(c.Context(), filename, content)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(validateBulkResponse{
		Message:   "CSV is valid",
		TotalRows: total,
	})
}

func (h *HospitalHandler) GetBatch(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("batchId"))
	details, err := h.bulk.GetBatch(c.Context(), batchID)
	if err != nil {
		return toHTTPError(err)
	}

	job := details.Job
	return c.Status(fiber.StatusOK).JSON(batchStatusResponse{
		BatchID:               job.BatchID,
		Status:                job.Status.String(),
		TotalHospitals:        job.TotalHospitals,
		ProcessedHospitals:    job.ProcessedHospitals,
		FailedHospitals:       job.FailedHospitals,
		ProcessingTimeSeconds: processingSeconds(job),
		SysCustomFields:       job.Outcome,
		Hospitals:             toHospitalResponses(details.Hospitals),
	})
}

func (h *HospitalHandler) ActivateBatch(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("batchId"))
	job, err := h.bulk.Activate(c.Context(), batchID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(activateBatchResponse{
		BatchID:               job.BatchID,
		Status:                job.Status.String(),
		TotalHospitals:        job.TotalHospitals,
		ProcessedHospitals:    job.ProcessedHospitals,
		FailedHospitals:       job.FailedHospitals,
		ProcessingTimeSeconds: processingSeconds(job),
		BatchActivated:        job.Outcome.Activated,
	})
}

func (h *HospitalHandler) DeleteBatch(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("batchId"))
	if err := h.bulk.DeleteBatch(c.Context(), batchID); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func readUploadedFile(c *fiber.Ctx) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "unable to read uploaded file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "unable to read uploaded file")
	}

	return fileHeader.Filename, content, nil
}

func processingSeconds(job *domain.BatchJob) float64 {
	if job.ProcessingTimeSeconds == nil {
		return 0
	}
	return *job.ProcessingTimeSeconds
}

func toHospitalResponses(hospitals []domain.Hospital) []hospitalResponse {
	responses := make([]hospitalResponse, 0, len(hospitals))
	for _, hospital := range hospitals {
		h := hospital
		responses = append(responses, toHospitalResponse(&h))
	}
	return responses
}

func toHospitalResponse(h *domain.Hospital) hospitalResponse {
	if h == nil {
		return hospitalResponse{}
	}

	return hospitalResponse{
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

func toHTTPError(err error) error {
	// Structured CSV validation errors keep their error list and are
	// rendered by the app-level error handler.
	var verr *domain.ValidationErrors
	if errors.As(err, &verr) {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
