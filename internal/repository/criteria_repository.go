package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
)

type CriteriaRepository interface {
	// FindByPart returns the rubric as sent by the server. Either list may be
	// empty; substituting defaults is the caller's decision.
	FindByPart(ctx context.Context, partID uint) (model.Rubric, error)
}

type criteriaRepository struct {
	api *APIClient
}

func NewCriteriaRepository(api *APIClient) CriteriaRepository {
	return &criteriaRepository{api: api}
}

func (r *criteriaRepository) FindByPart(ctx context.Context, partID uint) (model.Rubric, error) {
	var resp dto.CriteriaResponse
	query := url.Values{"part_id": {strconv.FormatUint(uint64(partID), 10)}}
	if err := r.api.GetJSON(ctx, EndpointCriteria, query, &resp); err != nil {
		return model.Rubric{}, fmt.Errorf("criteria for part %d: %w", partID, err)
	}
	return model.Rubric{
		Criteria:   resp.QualityCriteria(),
		Evaluation: resp.EvaluationCriteria(),
	}, nil
}
