package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/eventloop"
	"github.com/lshigami/labsignoff/internal/model"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	l := eventloop.New()
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

type fakeStudentRepo struct {
	mu      sync.Mutex
	queries []string
	results map[string][]model.SearchResult
	err     error
	// gates blocks a query until its channel is closed.
	gates map[string]chan struct{}
}

func (f *fakeStudentRepo) Search(ctx context.Context, endpoint, query string) ([]model.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gates[query]
	results, err := f.results[query], f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return results, err
}

func (f *fakeStudentRepo) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakePartRepo struct {
	mu    sync.Mutex
	parts map[uint][]model.Part
	err   error
	gates map[uint]chan struct{}
	n     int
}

func (f *fakePartRepo) FindByLab(ctx context.Context, labID uint) ([]model.Part, error) {
	f.mu.Lock()
	f.n++
	gate := f.gates[labID]
	parts, err := f.parts[labID], f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return parts, err
}

func (f *fakePartRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

type fakeCriteriaRepo struct {
	mu      sync.Mutex
	rubrics map[uint]model.Rubric
	err     error
	gates   map[uint]chan struct{}
	n       int
}

func (f *fakeCriteriaRepo) FindByPart(ctx context.Context, partID uint) (model.Rubric, error) {
	f.mu.Lock()
	f.n++
	gate := f.gates[partID]
	rubric, err := f.rubrics[partID], f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return rubric, err
}

func (f *fakeCriteriaRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

type fakeSignoffRepo struct {
	mu       sync.Mutex
	details  map[uint]model.ExistingSignoff
	statuses []model.PartStatus
	// byStudent overrides statuses for the listed students.
	byStudent   map[uint][]model.PartStatus
	statusGates map[uint]chan struct{} // by student
	detailGates map[uint]chan struct{} // by part
	respond     func(dto.QuickSignoffRequest) (dto.QuickSignoffResponse, error)
	submitted   []dto.QuickSignoffRequest
	lookups     int
	n           int
}

func (f *fakeSignoffRepo) FindStatusesByLab(ctx context.Context, studentID, labID uint) ([]model.PartStatus, error) {
	f.mu.Lock()
	f.n++
	gate := f.statusGates[studentID]
	statuses, ok := f.byStudent[studentID]
	if !ok {
		statuses = f.statuses
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return statuses, nil
}

func (f *fakeSignoffRepo) FindDetails(ctx context.Context, studentID, partID uint) (model.ExistingSignoff, error) {
	f.mu.Lock()
	f.n++
	f.lookups++
	gate := f.detailGates[partID]
	existing := f.details[partID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return existing, nil
}

func (f *fakeSignoffRepo) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func (f *fakeSignoffRepo) Submit(ctx context.Context, req dto.QuickSignoffRequest) (dto.QuickSignoffResponse, error) {
	f.mu.Lock()
	f.n++
	f.submitted = append(f.submitted, req)
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return dto.QuickSignoffResponse{Success: true}, nil
	}
	return respond(req)
}

func (f *fakeSignoffRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func (f *fakeSignoffRepo) submissions() []dto.QuickSignoffRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.QuickSignoffRequest(nil), f.submitted...)
}

func testConfig() *config.Config {
	return &config.Config{Session: config.Session{GuardStale: true}}
}
