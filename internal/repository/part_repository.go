package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jinzhu/copier"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
)

type PartRepository interface {
	FindByLab(ctx context.Context, labID uint) ([]model.Part, error)
}

type partRepository struct {
	api *APIClient
}

func NewPartRepository(api *APIClient) PartRepository {
	return &partRepository{api: api}
}

func (r *partRepository) FindByLab(ctx context.Context, labID uint) ([]model.Part, error) {
	var resp []dto.PartDTO
	query := url.Values{"lab_id": {strconv.FormatUint(uint64(labID), 10)}}
	if err := r.api.GetJSON(ctx, EndpointParts, query, &resp); err != nil {
		return nil, fmt.Errorf("parts for lab %d: %w", labID, err)
	}

	parts := make([]model.Part, 0, len(resp))
	if err := copier.Copy(&parts, &resp); err != nil {
		return nil, fmt.Errorf("error preparing parts: %w", err)
	}
	return parts, nil
}
