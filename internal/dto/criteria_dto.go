package dto

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/lshigami/labsignoff/internal/model"
)

type CriterionDTO struct {
	ID        FlexibleID    `json:"id"`
	Name      string        `json:"name"`
	MaxPoints FlexibleFloat `json:"max_points"`
}

type RubricCriterionDTO struct {
	Key      string        `json:"key"`
	Name     string        `json:"name"`
	MaxMarks FlexibleFloat `json:"max_marks"`
}

// CriteriaResponse is returned by GET /api/get-criteria/?part_id=
//
// Two shapes are in use: a bare array of quality criteria, and an object
// with "criteria" and "rubric_criteria". Both decode into this type; Wrapped
// records which one arrived.
type CriteriaResponse struct {
	Criteria       []CriterionDTO       `json:"criteria"`
	RubricCriteria []RubricCriterionDTO `json:"rubric_criteria"`
	Wrapped        bool                 `json:"-"`
}

func (r *CriteriaResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = CriteriaResponse{}
		return nil
	}

	switch data[0] {
	case '[':
		var criteria []CriterionDTO
		if err := json.Unmarshal(data, &criteria); err != nil {
			return fmt.Errorf("decode criteria array: %w", err)
		}
		*r = CriteriaResponse{Criteria: criteria}
		return nil
	case '{':
		var wrapped struct {
			Criteria       []CriterionDTO       `json:"criteria"`
			RubricCriteria []RubricCriterionDTO `json:"rubric_criteria"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("decode criteria object: %w", err)
		}
		*r = CriteriaResponse{Criteria: wrapped.Criteria, RubricCriteria: wrapped.RubricCriteria, Wrapped: true}
		return nil
	default:
		return fmt.Errorf("decode criteria: unexpected JSON starting with %q", data[0])
	}
}

func (r CriteriaResponse) MarshalJSON() ([]byte, error) {
	if !r.Wrapped {
		criteria := r.Criteria
		if criteria == nil {
			criteria = []CriterionDTO{}
		}
		return json.Marshal(criteria)
	}
	return json.Marshal(struct {
		Criteria       []CriterionDTO       `json:"criteria"`
		RubricCriteria []RubricCriterionDTO `json:"rubric_criteria"`
	}{r.Criteria, r.RubricCriteria})
}

// QualityCriteria converts the quality rows to domain criteria.
func (r CriteriaResponse) QualityCriteria() []model.Criterion {
	out := make([]model.Criterion, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		out = append(out, model.Criterion{ID: string(c.ID), Name: c.Name, MaxPoints: float64(c.MaxPoints)})
	}
	return out
}

// EvaluationCriteria converts the evaluation rubric rows to domain criteria.
func (r CriteriaResponse) EvaluationCriteria() []model.EvaluationCriterion {
	out := make([]model.EvaluationCriterion, 0, len(r.RubricCriteria))
	for _, c := range r.RubricCriteria {
		out = append(out, model.EvaluationCriterion{Key: c.Key, Name: c.Name, MaxMarks: float64(c.MaxMarks)})
	}
	return out
}
