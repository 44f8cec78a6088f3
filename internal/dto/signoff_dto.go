package dto

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lshigami/labsignoff/internal/model"
)

type QualityScoreDTO struct {
	CriteriaID FlexibleID    `json:"criteria_id"`
	Score      FlexibleFloat `json:"score"`
	MaxPoints  FlexibleFloat `json:"criteria__max_points"`
}

type EvaluationValueDTO struct {
	Value    string        `json:"value"`
	MaxMarks FlexibleFloat `json:"max_marks"`
}

// aggregate keys the evaluation sheet carries next to the per-criterion rows.
var evaluationAggregateKeys = map[string]bool{
	"total_marks":     true,
	"total_max_marks": true,
	"percentage":      true,
}

// EvaluationSheetDTO maps an evaluation criterion key to its stored value.
// Aggregate keys are dropped while decoding.
type EvaluationSheetDTO map[string]EvaluationValueDTO

func (s *EvaluationSheetDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode evaluation sheet: %w", err)
	}
	out := make(EvaluationSheetDTO, len(raw))
	for key, value := range raw {
		if evaluationAggregateKeys[key] {
			continue
		}
		var v EvaluationValueDTO
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decode evaluation sheet entry %q: %w", key, err)
		}
		out[key] = v
	}
	*s = out
	return nil
}

type HistoryDTO struct {
	InstructorUsername string `json:"instructor__username"`
	DateUpdated        string `json:"date_updated"`
	Status             string `json:"status"`
	Comments           string `json:"comments"`
}

// SignoffDetailsResponse is returned by GET /api/get-signoff-details/?student_id=&part_id=
type SignoffDetailsResponse struct {
	Found              bool               `json:"found"`
	Comments           string             `json:"comments"`
	OverallScore       int                `json:"overall_score"`
	Status             string             `json:"status"`
	QualityScores      []QualityScoreDTO  `json:"quality_scores"`
	HasEvaluationSheet bool               `json:"has_evaluation_sheet"`
	EvaluationSheet    EvaluationSheetDTO `json:"evaluation_sheet"`
	History            []HistoryDTO       `json:"history"`
}

var historyDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseHistoryDate(s string) time.Time {
	for _, layout := range historyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToModel converts the wire response into the domain ExistingSignoff.
// Evaluation entries are read only when has_evaluation_sheet is set and are
// sorted by key.
func (r SignoffDetailsResponse) ToModel() model.ExistingSignoff {
	out := model.ExistingSignoff{
		Found:              r.Found,
		Comments:           r.Comments,
		OverallScore:       r.OverallScore,
		Status:             model.SignoffStatus(r.Status),
		HasEvaluationSheet: r.HasEvaluationSheet,
	}
	for _, q := range r.QualityScores {
		out.QualityScores = append(out.QualityScores, model.QualityScore{
			CriterionID: string(q.CriteriaID),
			Score:       float64(q.Score),
			MaxPoints:   float64(q.MaxPoints),
		})
	}
	if r.HasEvaluationSheet {
		keys := make([]string, 0, len(r.EvaluationSheet))
		for k := range r.EvaluationSheet {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := r.EvaluationSheet[k]
			out.Evaluations = append(out.Evaluations, model.EvaluationEntry{
				Key:      k,
				Status:   model.EvaluationStatus(v.Value),
				MaxMarks: float64(v.MaxMarks),
			})
		}
	}
	for _, h := range r.History {
		out.History = append(out.History, model.HistoryEntry{
			Instructor:  h.InstructorUsername,
			DateUpdated: parseHistoryDate(h.DateUpdated),
			Status:      model.SignoffStatus(h.Status),
			Comments:    h.Comments,
		})
	}
	return out
}

// QuickSignoffRequest is the body of POST /api/quick-signoff/
type QuickSignoffRequest struct {
	StudentID         uint              `json:"student_id" binding:"required"`
	PartID            uint              `json:"part_id" binding:"required"`
	Comments          string            `json:"comments"`
	OverallScore      int               `json:"overall_score" binding:"min=0,max=4"`
	CriteriaScores    map[string]int    `json:"criteria_scores"`
	RubricEvaluations map[string]string `json:"rubric_evaluations"`
}

type QuickSignoffResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SignoffID uint   `json:"signoff_id,omitempty"`
}
