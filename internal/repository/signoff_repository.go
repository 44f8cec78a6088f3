package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
)

type SignoffRepository interface {
	FindStatusesByLab(ctx context.Context, studentID, labID uint) ([]model.PartStatus, error)
	FindDetails(ctx context.Context, studentID, partID uint) (model.ExistingSignoff, error)
	Submit(ctx context.Context, req dto.QuickSignoffRequest) (dto.QuickSignoffResponse, error)
}

type signoffRepository struct {
	api *APIClient
}

func NewSignoffRepository(api *APIClient) SignoffRepository {
	return &signoffRepository{api: api}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (r *signoffRepository) FindStatusesByLab(ctx context.Context, studentID, labID uint) ([]model.PartStatus, error) {
	var resp []dto.PartSignoffDTO
	query := url.Values{"student_id": {formatID(studentID)}, "lab_id": {formatID(labID)}}
	if err := r.api.GetJSON(ctx, EndpointSignoffs, query, &resp); err != nil {
		return nil, fmt.Errorf("signoffs for student %d lab %d: %w", studentID, labID, err)
	}
	statuses := make([]model.PartStatus, 0, len(resp))
	for _, s := range resp {
		statuses = append(statuses, model.PartStatus{PartID: s.PartID, Status: model.SignoffStatus(s.Status)})
	}
	return statuses, nil
}

func (r *signoffRepository) FindDetails(ctx context.Context, studentID, partID uint) (model.ExistingSignoff, error) {
	var resp dto.SignoffDetailsResponse
	query := url.Values{"student_id": {formatID(studentID)}, "part_id": {formatID(partID)}}
	if err := r.api.GetJSON(ctx, EndpointSignoffDetails, query, &resp); err != nil {
		return model.ExistingSignoff{}, fmt.Errorf("signoff details for student %d part %d: %w", studentID, partID, err)
	}
	return resp.ToModel(), nil
}

// Submit posts the signoff. A response with success=false is returned without
// an error; interpreting it is up to the caller.
func (r *signoffRepository) Submit(ctx context.Context, req dto.QuickSignoffRequest) (dto.QuickSignoffResponse, error) {
	var resp dto.QuickSignoffResponse
	if err := r.api.PostJSON(ctx, EndpointQuickSignoff, req, &resp); err != nil {
		return dto.QuickSignoffResponse{}, fmt.Errorf("submit signoff for student %d part %d: %w", req.StudentID, req.PartID, err)
	}
	return resp, nil
}
