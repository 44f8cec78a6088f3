package controller

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
)

const searchLimit = 10

// FixturePart is a part with the rubric the fixture serves for it.
type FixturePart struct {
	LabID      uint
	Part       model.Part
	Criteria   []model.Criterion
	Evaluation []model.EvaluationCriterion
	// Wrapped selects the object response shape instead of the bare array.
	Wrapped bool
}

type signoffKey struct {
	studentID uint
	partID    uint
}

type signoffRecord struct {
	Status       model.SignoffStatus
	Comments     string
	OverallScore int
	Quality      map[string]float64
	Evaluation   map[string]dto.EvaluationValueDTO
	History      []dto.HistoryDTO
	ID           uint
}

// FixtureStore is the in-memory data behind the fixture API.
type FixtureStore struct {
	mu       sync.RWMutex
	students []model.SearchResult
	parts    map[uint]FixturePart
	signoffs map[signoffKey]*signoffRecord
	nextID   uint
	now      func() time.Time
}

func NewFixtureStore() *FixtureStore {
	return &FixtureStore{
		parts:    make(map[uint]FixturePart),
		signoffs: make(map[signoffKey]*signoffRecord),
		nextID:   1,
		now:      time.Now,
	}
}

func (s *FixtureStore) AddStudent(st model.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append(s.students, st)
}

func (s *FixtureStore) AddPart(p FixturePart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts[p.Part.ID] = p
}

func (s *FixtureStore) SearchStudents(query string) []model.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []model.SearchResult{}
	if len(q) < 2 {
		return out
	}
	for _, st := range s.students {
		if strings.Contains(strings.ToLower(st.Name), q) || strings.Contains(strings.ToLower(st.StudentID), q) {
			out = append(out, st)
			if len(out) == searchLimit {
				break
			}
		}
	}
	return out
}

func (s *FixtureStore) HasStudent(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == id {
			return true
		}
	}
	return false
}

// PartsForLab returns the lab's parts ordered by id.
func (s *FixtureStore) PartsForLab(labID uint) []model.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Part{}
	for _, p := range s.parts {
		if p.LabID == labID {
			out = append(out, p.Part)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *FixtureStore) Part(partID uint) (FixturePart, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[partID]
	return p, ok
}

func (s *FixtureStore) StatusesForLab(studentID, labID uint) []dto.PartSignoffDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []dto.PartSignoffDTO{}
	for key, rec := range s.signoffs {
		if key.studentID != studentID {
			continue
		}
		if p, ok := s.parts[key.partID]; ok && p.LabID == labID {
			out = append(out, dto.PartSignoffDTO{PartID: key.partID, Status: string(rec.Status)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartID < out[j].PartID })
	return out
}

func (s *FixtureStore) Details(studentID, partID uint) dto.SignoffDetailsResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.signoffs[signoffKey{studentID, partID}]
	if !ok {
		return dto.SignoffDetailsResponse{Found: false}
	}
	part := s.parts[partID]
	maxPoints := make(map[string]float64, len(part.Criteria))
	for _, c := range part.Criteria {
		maxPoints[c.ID] = c.MaxPoints
	}

	resp := dto.SignoffDetailsResponse{
		Found:              true,
		Comments:           rec.Comments,
		OverallScore:       rec.OverallScore,
		Status:             string(rec.Status),
		HasEvaluationSheet: len(rec.Evaluation) > 0,
		History:            append([]dto.HistoryDTO(nil), rec.History...),
	}
	ids := make([]string, 0, len(rec.Quality))
	for id := range rec.Quality {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		resp.QualityScores = append(resp.QualityScores, dto.QualityScoreDTO{
			CriteriaID: dto.FlexibleID(id),
			Score:      dto.FlexibleFloat(rec.Quality[id]),
			MaxPoints:  dto.FlexibleFloat(maxPoints[id]),
		})
	}
	if len(rec.Evaluation) > 0 {
		resp.EvaluationSheet = make(dto.EvaluationSheetDTO, len(rec.Evaluation))
		for k, v := range rec.Evaluation {
			resp.EvaluationSheet[k] = v
		}
	}
	return resp
}

// Upsert records a signoff, returning its id and whether it was created.
func (s *FixtureStore) Upsert(studentID, partID uint, instructor string, rec signoffRecord) (uint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := signoffKey{studentID, partID}
	existing, found := s.signoffs[key]
	history := []dto.HistoryDTO{{
		InstructorUsername: instructor,
		DateUpdated:        s.now().UTC().Format(time.RFC3339Nano),
		Status:             string(rec.Status),
		Comments:           rec.Comments,
	}}
	if found {
		rec.ID = existing.ID
		history = append(history, existing.History...)
	} else {
		rec.ID = s.nextID
		s.nextID++
	}
	rec.History = history
	s.signoffs[key] = &rec
	return rec.ID, !found
}

// SeedDemo loads a small data set for offline runs.
func (s *FixtureStore) SeedDemo() {
	for _, st := range []model.SearchResult{
		{ID: 1, StudentID: "S100", Name: "Alice Nguyen", Email: "alice@example.edu"},
		{ID: 2, StudentID: "S101", Name: "Alicia Park", Email: "alicia@example.edu"},
		{ID: 3, StudentID: "S102", Name: "Bob Okafor"},
		{ID: 4, StudentID: "S207", Name: "Carmen Ruiz", Email: "carmen@example.edu"},
	} {
		s.AddStudent(st)
	}

	s.AddPart(FixturePart{
		LabID: 1,
		Part:  model.Part{ID: 11, Name: "Part 1: Memory map"},
		Criteria: []model.Criterion{
			{ID: "101", Name: "Decoder logic", MaxPoints: 10},
			{ID: "102", Name: "Wiring neatness", MaxPoints: 5},
		},
		Evaluation: []model.EvaluationCriterion{
			{Key: "hardware", Name: "Hardware", MaxMarks: 10},
			{Key: "schematic", Name: "Schematic", MaxMarks: 10},
		},
		Wrapped: true,
	})
	s.AddPart(FixturePart{
		LabID: 1,
		Part:  model.Part{ID: 12, Name: "Part 2: Serial echo"},
		Criteria: []model.Criterion{
			{ID: "103", Name: "Baud rate setup", MaxPoints: 10},
		},
	})
	s.AddPart(FixturePart{
		LabID: 2,
		Part:  model.Part{ID: 21, Name: "Part 1: Timers"},
	})
}
