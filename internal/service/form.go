package service

import (
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
	"github.com/lshigami/labsignoff/internal/view"
)

// SignoffForm is the draft being edited for one part. It always has at least
// the default rubric so the form is never empty.
type SignoffForm struct {
	criteria   []model.Criterion
	evaluation []model.EvaluationCriterion

	levels   map[string]model.QualityLevel
	statuses map[string]model.EvaluationStatus
	maxMarks map[string]float64
	overall  model.QualityLevel
	comments string
}

func NewSignoffForm(rubric model.Rubric) *SignoffForm {
	f := &SignoffForm{
		criteria:   rubric.Criteria,
		evaluation: rubric.Evaluation,
	}
	if len(f.criteria) == 0 {
		f.criteria = model.DefaultCriteria()
	}
	if len(f.evaluation) == 0 {
		f.evaluation = model.DefaultEvaluationCriteria()
	}
	f.Reset()
	return f
}

// Reset puts every control back to its default.
func (f *SignoffForm) Reset() {
	f.levels = make(map[string]model.QualityLevel, len(f.criteria))
	for _, c := range f.criteria {
		f.levels[c.ID] = model.LevelMeetsRequirements
	}
	f.statuses = make(map[string]model.EvaluationStatus, len(f.evaluation))
	f.maxMarks = make(map[string]float64, len(f.evaluation))
	for _, e := range f.evaluation {
		f.statuses[e.Key] = model.EvalMeetsRequirements
		f.maxMarks[e.Key] = e.MaxMarks
	}
	f.overall = model.LevelMeetsRequirements
	f.comments = ""
}

// Prefill loads a stored signoff into the controls. Scores for criteria the
// form does not show are ignored.
func (f *SignoffForm) Prefill(existing model.ExistingSignoff, converter ScoreConverterService) {
	f.Reset()
	f.comments = existing.Comments
	f.overall = converter.OverallForStatus(existing.Status, existing.OverallScore)

	maxByID := make(map[string]float64, len(f.criteria))
	for _, c := range f.criteria {
		maxByID[c.ID] = c.MaxPoints
	}
	for _, q := range existing.QualityScores {
		maxPoints, ok := maxByID[q.CriterionID]
		if !ok {
			continue
		}
		if q.MaxPoints > 0 {
			maxPoints = q.MaxPoints
		}
		f.levels[q.CriterionID] = converter.Discretize(q.Score, maxPoints)
	}

	for _, e := range existing.Evaluations {
		if _, ok := f.statuses[e.Key]; !ok {
			continue
		}
		if e.Status.Valid() {
			f.statuses[e.Key] = e.Status
		}
		if e.MaxMarks > 0 {
			f.maxMarks[e.Key] = e.MaxMarks
		}
	}
}

func (f *SignoffForm) SetOverall(level model.QualityLevel) error {
	if !level.Valid() {
		return invalidField("overall_score", "Invalid overall score: %d", int(level))
	}
	f.overall = level
	return nil
}

func (f *SignoffForm) SetLevel(criterionID string, level model.QualityLevel) error {
	if _, ok := f.levels[criterionID]; !ok {
		return invalidField("criteria_"+criterionID, "Unknown criterion: %s", criterionID)
	}
	if !level.Valid() {
		return invalidField("criteria_"+criterionID, "Invalid quality level: %d", int(level))
	}
	f.levels[criterionID] = level
	return nil
}

func (f *SignoffForm) SetStatus(key string, status model.EvaluationStatus) error {
	if _, ok := f.statuses[key]; !ok {
		return invalidField("eval_"+key, "Unknown evaluation criterion: %s", key)
	}
	if !status.Valid() {
		return invalidField("eval_"+key, "Invalid evaluation status: %s", status)
	}
	f.statuses[key] = status
	return nil
}

func (f *SignoffForm) SetMaxMarks(key string, marks float64) error {
	if _, ok := f.maxMarks[key]; !ok {
		return invalidField("eval_"+key+"_max", "Unknown evaluation criterion: %s", key)
	}
	if marks < 0 {
		return invalidField("eval_"+key+"_max", "Max marks must not be negative")
	}
	f.maxMarks[key] = marks
	return nil
}

func (f *SignoffForm) SetComments(text string) {
	f.comments = text
}

func (f *SignoffForm) Overall() model.QualityLevel {
	return f.overall
}

func (f *SignoffForm) Level(criterionID string) model.QualityLevel {
	return f.levels[criterionID]
}

func (f *SignoffForm) Status(key string) model.EvaluationStatus {
	return f.statuses[key]
}

func (f *SignoffForm) Criteria() []model.Criterion {
	return f.criteria
}

// Payload reads the controls back into a submission body. Edited max marks
// are display-only and are not sent.
func (f *SignoffForm) Payload(studentID, partID uint) dto.QuickSignoffRequest {
	req := dto.QuickSignoffRequest{
		StudentID:         studentID,
		PartID:            partID,
		Comments:          f.comments,
		OverallScore:      int(f.overall),
		CriteriaScores:    make(map[string]int, len(f.levels)),
		RubricEvaluations: make(map[string]string, len(f.statuses)),
	}
	for id, level := range f.levels {
		req.CriteriaScores[id] = int(level)
	}
	for key, status := range f.statuses {
		req.RubricEvaluations[key] = string(status)
	}
	return req
}

func (f *SignoffForm) criterionRows() []view.CriterionRow {
	rows := make([]view.CriterionRow, 0, len(f.criteria))
	for _, c := range f.criteria {
		rows = append(rows, view.CriterionRow{Criterion: c, Level: f.levels[c.ID]})
	}
	return rows
}

func (f *SignoffForm) evaluationRows() []view.EvaluationRow {
	rows := make([]view.EvaluationRow, 0, len(f.evaluation))
	for _, e := range f.evaluation {
		rows = append(rows, view.EvaluationRow{Criterion: e, MaxMarks: f.maxMarks[e.Key], Status: f.statuses[e.Key]})
	}
	return rows
}
