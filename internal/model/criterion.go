package model

import "fmt"

// Criterion is a quality rubric row scored on the five quality levels.
type Criterion struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	MaxPoints float64 `json:"max_points"`
}

// EvaluationCriterion is an evaluation sheet row with a categorical status.
type EvaluationCriterion struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	MaxMarks float64 `json:"max_marks"`
}

// QualityLevel is one of the five discrete grading bands.
type QualityLevel int

const (
	LevelNotApplicable QualityLevel = iota
	LevelPoor
	LevelMeetsRequirements
	LevelExceedsRequirements
	LevelOutstanding
)

// QualityLevels lists every level in ascending order.
var QualityLevels = []QualityLevel{
	LevelNotApplicable,
	LevelPoor,
	LevelMeetsRequirements,
	LevelExceedsRequirements,
	LevelOutstanding,
}

func (l QualityLevel) Valid() bool {
	return l >= LevelNotApplicable && l <= LevelOutstanding
}

func (l QualityLevel) Label() string {
	switch l {
	case LevelNotApplicable:
		return "Not Applicable"
	case LevelPoor:
		return "Poor/Not Complete"
	case LevelMeetsRequirements:
		return "Meets Requirements"
	case LevelExceedsRequirements:
		return "Exceeds Requirements"
	case LevelOutstanding:
		return "Outstanding"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// EvaluationStatus is the categorical value of an evaluation sheet row.
type EvaluationStatus string

const (
	EvalExceedsRequirements EvaluationStatus = "ER"
	EvalMeetsRequirements   EvaluationStatus = "MR"
	EvalMinimallyMeets      EvaluationStatus = "MM"
	EvalImprovementRequired EvaluationStatus = "IR"
	EvalNotDemonstrated     EvaluationStatus = "ND"
)

// EvaluationStatuses lists the selector options in display order.
var EvaluationStatuses = []EvaluationStatus{
	EvalExceedsRequirements,
	EvalMeetsRequirements,
	EvalMinimallyMeets,
	EvalImprovementRequired,
	EvalNotDemonstrated,
}

func (s EvaluationStatus) Valid() bool {
	for _, v := range EvaluationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s EvaluationStatus) Label() string {
	switch s {
	case EvalExceedsRequirements:
		return "Exceeds Requirements"
	case EvalMeetsRequirements:
		return "Meets Requirements"
	case EvalMinimallyMeets:
		return "Minimally Meets"
	case EvalImprovementRequired:
		return "Improvement Required"
	case EvalNotDemonstrated:
		return "Not Demonstrated"
	default:
		return string(s)
	}
}

// Rubric is everything needed to render the scoring form for one part.
type Rubric struct {
	Criteria   []Criterion
	Evaluation []EvaluationCriterion
}
