package service

import (
	"github.com/lshigami/labsignoff/internal/model"
)

// Ratio upper bounds for levels 1..3. A ratio equal to a bound belongs to the
// lower level; anything above the last bound is Outstanding.
var levelBounds = [...]struct {
	upTo  float64
	level model.QualityLevel
}{
	{0.25, model.LevelPoor},
	{0.50, model.LevelMeetsRequirements},
	{0.75, model.LevelExceedsRequirements},
}

// levelFractions is the share of max points each level is worth.
var levelFractions = map[model.QualityLevel]float64{
	model.LevelNotApplicable:       0,
	model.LevelPoor:                0.25,
	model.LevelMeetsRequirements:   0.5,
	model.LevelExceedsRequirements: 0.75,
	model.LevelOutstanding:         1,
}

type ScoreConverterService interface {
	// Discretize maps a raw score against its max points to a quality level.
	Discretize(score, maxPoints float64) model.QualityLevel
	// StatusForOverall derives the signoff status an overall level implies.
	StatusForOverall(overall model.QualityLevel) model.SignoffStatus
	// OverallForStatus picks the overall level to preselect for a stored signoff.
	OverallForStatus(status model.SignoffStatus, storedOverall int) model.QualityLevel
	// PointsForLevel converts a level back to points; Discretize inverts it.
	PointsForLevel(level model.QualityLevel, maxPoints float64) float64
}

type scoreConverterServiceImpl struct{}

func NewScoreConverterService() ScoreConverterService {
	return &scoreConverterServiceImpl{}
}

func (s *scoreConverterServiceImpl) Discretize(score, maxPoints float64) model.QualityLevel {
	if score == 0 {
		return model.LevelNotApplicable
	}
	// Float division: a zero maxPoints yields ±Inf, which lands on a valid level.
	ratio := score / maxPoints
	for _, b := range levelBounds {
		if ratio <= b.upTo {
			return b.level
		}
	}
	return model.LevelOutstanding
}

func (s *scoreConverterServiceImpl) StatusForOverall(overall model.QualityLevel) model.SignoffStatus {
	if overall <= model.LevelPoor {
		return model.StatusRejected
	}
	return model.StatusApproved
}

func clampLevel(v int) model.QualityLevel {
	switch {
	case v < int(model.LevelNotApplicable):
		return model.LevelNotApplicable
	case v > int(model.LevelOutstanding):
		return model.LevelOutstanding
	default:
		return model.QualityLevel(v)
	}
}

func (s *scoreConverterServiceImpl) OverallForStatus(status model.SignoffStatus, storedOverall int) model.QualityLevel {
	stored := clampLevel(storedOverall)
	switch status {
	case model.StatusRejected:
		if stored <= model.LevelPoor {
			return stored
		}
		return model.LevelPoor
	case model.StatusApproved:
		if stored >= model.LevelMeetsRequirements {
			return stored
		}
		return model.LevelMeetsRequirements
	default:
		return model.LevelMeetsRequirements
	}
}

func (s *scoreConverterServiceImpl) PointsForLevel(level model.QualityLevel, maxPoints float64) float64 {
	return levelFractions[level] * maxPoints
}
