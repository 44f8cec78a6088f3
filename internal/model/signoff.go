package model

import (
	"strings"
	"time"
)

type SignoffStatus string

const (
	StatusPending  SignoffStatus = "pending"
	StatusApproved SignoffStatus = "approved"
	StatusRejected SignoffStatus = "rejected"
)

// Title is the badge text, e.g. "Approved".
func (s SignoffStatus) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Color maps a status to its badge colour class.
func (s SignoffStatus) Color() string {
	switch s {
	case StatusApproved:
		return "success"
	case StatusRejected:
		return "danger"
	case StatusPending:
		return "warning"
	default:
		return "secondary"
	}
}

// QualityScore is a stored raw score for one quality criterion.
type QualityScore struct {
	CriterionID string
	Score       float64
	MaxPoints   float64
}

// EvaluationEntry is a stored evaluation sheet row.
type EvaluationEntry struct {
	Key      string
	Status   EvaluationStatus
	MaxMarks float64
}

type HistoryEntry struct {
	Instructor  string
	DateUpdated time.Time
	Status      SignoffStatus
	Comments    string
}

// ExistingSignoff is the prior decision for a (student, part) pair.
type ExistingSignoff struct {
	Found              bool
	Comments           string
	OverallScore       int
	Status             SignoffStatus
	QualityScores      []QualityScore
	HasEvaluationSheet bool
	Evaluations        []EvaluationEntry
	History            []HistoryEntry
}
