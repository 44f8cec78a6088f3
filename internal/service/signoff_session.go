package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/eventloop"
	"github.com/lshigami/labsignoff/internal/model"
	"github.com/lshigami/labsignoff/internal/repository"
	"github.com/lshigami/labsignoff/internal/view"
	"github.com/rs/zerolog/log"
)

type SessionStage int

const (
	StageNoStudent SessionStage = iota
	StageStudentSelected
	StagePartsLoading
	StagePartsLoaded
	StagePartsEmpty
	StageCriteriaLoading
	StageFormReady
	StageSignoffLookup
	StageSubmitting
	StageSubmitted
)

var stageNames = map[SessionStage]string{
	StageNoStudent:       "no_student",
	StageStudentSelected: "student_selected",
	StagePartsLoading:    "parts_loading",
	StagePartsLoaded:     "parts_loaded",
	StagePartsEmpty:      "parts_empty",
	StageCriteriaLoading: "criteria_loading",
	StageFormReady:       "form_ready",
	StageSignoffLookup:   "signoff_lookup",
	StageSubmitting:      "submitting",
	StageSubmitted:       "submitted",
}

func (s SessionStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

const (
	msgLoadedExisting = "Loaded existing signoff data"
	msgLookupFailed   = "Error loading signoff data. Please try again."
	msgSubmitFailed   = "Error submitting signoff"
)

// SessionSnapshot is a read-only copy of the session state.
type SessionSnapshot struct {
	Stage        SessionStage
	Student      *model.SelectedStudent
	LabID        uint
	Parts        []model.Part
	PartStatuses map[uint]model.SignoffStatus
	Part         *model.Part
	Criteria     []model.Criterion
	// Draft is the submission body the form currently holds, nil without a form.
	Draft          *dto.QuickSignoffRequest
	DerivedStatus  model.SignoffStatus
	History        []model.HistoryEntry
	Alerts         []view.Alert
	SuccessVisible bool
}

// SignoffSession drives student -> parts -> criteria -> prior signoff and the
// scoring form. Every method returns immediately; state changes happen on the
// event loop.
type SignoffSession interface {
	SelectionListener
	SelectLab(labID uint, labName string)
	SelectPart(partID uint)
	SetOverallScore(level int)
	SetCriterionLevel(criterionID string, level int)
	SetEvaluationStatus(key, status string)
	SetEvaluationMaxMarks(key string, marks float64)
	SetComments(text string)
	Submit()
	// ClearForm closes the grading form but keeps the student and parts.
	ClearForm()
	// Reset forgets the student and everything loaded for them. The lab stays selected.
	Reset()
	// NewSignoff hides the success confirmation, resets and clears the search box.
	NewSignoff()
	DismissAlert(id string)
	Snapshot() SessionSnapshot
}

// epochs are bumped whenever the data a pending fetch would fill is invalidated.
type epochs struct {
	parts, badges, criteria, lookup, submit uint64
}

type signoffSessionImpl struct {
	loop      *eventloop.Loop
	typeahead SearchTypeahead
	partRepo  repository.PartRepository
	critRepo  repository.CriteriaRepository
	signRepo  repository.SignoffRepository
	converter ScoreConverterService
	renderer  view.Renderer

	guardStale bool
	alertTTL   time.Duration

	// Loop-owned state.
	stage          SessionStage
	student        *model.SelectedStudent
	labID          uint
	labName        string
	parts          []model.Part
	partsState     view.PartsState
	statuses       map[uint]model.SignoffStatus
	part           *model.Part
	form           *SignoffForm
	history        []model.HistoryEntry
	alerts         []view.Alert
	alertTimers    map[string]*eventloop.Timer
	busy           int
	successVisible bool
	epoch          epochs
}

func NewSignoffSession(
	loop *eventloop.Loop,
	typeahead SearchTypeahead,
	partRepo repository.PartRepository,
	critRepo repository.CriteriaRepository,
	signRepo repository.SignoffRepository,
	converter ScoreConverterService,
	renderer view.Renderer,
	cfg *config.Config,
) SignoffSession {
	s := &signoffSessionImpl{
		loop:        loop,
		typeahead:   typeahead,
		partRepo:    partRepo,
		critRepo:    critRepo,
		signRepo:    signRepo,
		converter:   converter,
		renderer:    renderer,
		guardStale:  cfg.Session.GuardStale,
		alertTTL:    cfg.Session.AlertTTL,
		statuses:    make(map[uint]model.SignoffStatus),
		alertTimers: make(map[string]*eventloop.Timer),
	}
	if typeahead != nil {
		typeahead.Subscribe(s)
	}
	return s
}

// StudentSelected is called on the loop by the typeahead.
func (s *signoffSessionImpl) StudentSelected(result model.SearchResult) {
	var student model.SelectedStudent
	if err := copier.Copy(&student, &result); err != nil {
		log.Error().Err(err).Uint("studentID", result.ID).Msg("SignoffSession: failed to copy selected student")
		s.alert(view.AlertDanger, "Error selecting student: "+err.Error())
		return
	}

	changed := s.student == nil || s.student.ID != student.ID
	s.student = &student
	s.successVisible = false
	if !changed {
		s.render()
		return
	}

	s.invalidateForm()
	s.epoch.badges++
	s.statuses = make(map[uint]model.SignoffStatus)
	s.setStage(StageStudentSelected)
	if s.labID != 0 {
		s.loadParts()
		return
	}
	s.render()
}

func (s *signoffSessionImpl) SelectLab(labID uint, labName string) {
	s.loop.Post(func() {
		s.labID = labID
		s.labName = labName
		s.invalidateParts()
		if labID == 0 {
			s.partsState = view.PartsHidden
			s.setStage(s.baseStage())
			s.render()
			return
		}
		s.loadParts()
	})
}

func (s *signoffSessionImpl) SelectPart(partID uint) {
	s.loop.Post(func() {
		for i := range s.parts {
			if s.parts[i].ID == partID {
				p := s.parts[i]
				s.loadCriteria(&p)
				return
			}
		}
		s.alert(view.AlertWarning, fmt.Sprintf("Part %d is not in the current lab", partID))
	})
}

func (s *signoffSessionImpl) SetOverallScore(level int) {
	s.editForm(func(f *SignoffForm) error { return f.SetOverall(model.QualityLevel(level)) })
}

func (s *signoffSessionImpl) SetCriterionLevel(criterionID string, level int) {
	s.editForm(func(f *SignoffForm) error { return f.SetLevel(criterionID, model.QualityLevel(level)) })
}

func (s *signoffSessionImpl) SetEvaluationStatus(key, status string) {
	s.editForm(func(f *SignoffForm) error { return f.SetStatus(key, model.EvaluationStatus(status)) })
}

func (s *signoffSessionImpl) SetEvaluationMaxMarks(key string, marks float64) {
	s.editForm(func(f *SignoffForm) error { return f.SetMaxMarks(key, marks) })
}

func (s *signoffSessionImpl) SetComments(text string) {
	s.editForm(func(f *SignoffForm) error {
		f.SetComments(text)
		return nil
	})
}

func (s *signoffSessionImpl) editForm(edit func(*SignoffForm) error) {
	s.loop.Post(func() {
		if s.form == nil {
			s.alert(view.AlertWarning, errNoPart.Message)
			return
		}
		if err := edit(s.form); err != nil {
			s.alert(view.AlertWarning, err.Error())
			return
		}
		s.render()
	})
}

func (s *signoffSessionImpl) Submit() {
	s.loop.Post(s.submit)
}

func (s *signoffSessionImpl) ClearForm() {
	s.loop.Post(func() {
		s.invalidateForm()
		s.setStage(s.partsStage())
		s.render()
	})
}

func (s *signoffSessionImpl) Reset() {
	s.loop.Post(s.reset)
}

func (s *signoffSessionImpl) NewSignoff() {
	s.loop.Post(func() {
		s.successVisible = false
		s.reset()
		if s.typeahead != nil {
			s.typeahead.Clear()
		}
	})
}

func (s *signoffSessionImpl) DismissAlert(id string) {
	s.loop.Post(func() { s.dismiss(id) })
}

func (s *signoffSessionImpl) Snapshot() SessionSnapshot {
	var snap SessionSnapshot
	s.loop.Call(func() {
		snap = SessionSnapshot{
			Stage:          s.stage,
			LabID:          s.labID,
			Parts:          append([]model.Part(nil), s.parts...),
			PartStatuses:   make(map[uint]model.SignoffStatus, len(s.statuses)),
			History:        append([]model.HistoryEntry(nil), s.history...),
			Alerts:         append([]view.Alert(nil), s.alerts...),
			SuccessVisible: s.successVisible,
		}
		for k, v := range s.statuses {
			snap.PartStatuses[k] = v
		}
		if s.student != nil {
			st := *s.student
			snap.Student = &st
		}
		if s.part != nil {
			p := *s.part
			snap.Part = &p
		}
		if s.form != nil {
			snap.Criteria = append([]model.Criterion(nil), s.form.Criteria()...)
			var studentID, partID uint
			if s.student != nil {
				studentID = s.student.ID
			}
			if s.part != nil {
				partID = s.part.ID
			}
			draft := s.form.Payload(studentID, partID)
			snap.Draft = &draft
			snap.DerivedStatus = s.converter.StatusForOverall(s.form.Overall())
		}
	})
	return snap
}

func (s *signoffSessionImpl) setStage(stage SessionStage) {
	if s.stage == stage {
		return
	}
	log.Debug().Str("from", s.stage.String()).Str("stage", stage.String()).Msg("SignoffSession: stage transition")
	s.stage = stage
}

func (s *signoffSessionImpl) baseStage() SessionStage {
	if s.student != nil {
		return StageStudentSelected
	}
	return StageNoStudent
}

// partsStage is the stage to fall back to when the form closes.
func (s *signoffSessionImpl) partsStage() SessionStage {
	switch s.partsState {
	case view.PartsListed:
		return StagePartsLoaded
	case view.PartsEmpty:
		return StagePartsEmpty
	default:
		return s.baseStage()
	}
}

func (s *signoffSessionImpl) invalidateForm() {
	s.epoch.criteria++
	s.epoch.lookup++
	s.epoch.submit++
	s.part = nil
	s.form = nil
	s.history = nil
}

func (s *signoffSessionImpl) invalidateParts() {
	s.epoch.parts++
	s.epoch.badges++
	s.invalidateForm()
	s.parts = nil
	s.statuses = make(map[uint]model.SignoffStatus)
}

// current reports whether a completion captured at epoch may be applied.
func (s *signoffSessionImpl) current(kind string, captured, latest uint64) bool {
	if captured == latest {
		return true
	}
	ev := log.Warn().Str("fetch", kind).Uint64("epoch", captured).Uint64("latest", latest).Str("stage", s.stage.String())
	if s.guardStale {
		ev.Msg("SignoffSession: dropping out-of-order response")
		return false
	}
	ev.Msg("SignoffSession: applying out-of-order response")
	return true
}

// selected reports whether studentID and partID are still the pair on screen.
func (s *signoffSessionImpl) selected(studentID, partID uint) bool {
	return s.student != nil && s.student.ID == studentID && s.part != nil && s.part.ID == partID
}

func (s *signoffSessionImpl) loadParts() {
	s.invalidateParts()
	epoch := s.epoch.parts
	labID := s.labID

	s.partsState = view.PartsLoading
	s.setStage(StagePartsLoading)
	s.busy++
	s.render()

	log.Info().Uint("labID", labID).Msg("SignoffSession: loading parts")
	eventloop.Await(s.loop, context.Background(),
		func(ctx context.Context) ([]model.Part, error) {
			return s.partRepo.FindByLab(ctx, labID)
		},
		func(parts []model.Part, err error) {
			s.busy--
			if !s.current("parts", epoch, s.epoch.parts) {
				s.render()
				return
			}
			if err != nil {
				log.Error().Err(err).Uint("labID", labID).Msg("SignoffSession: error loading parts")
				s.partsState = view.PartsHidden
				s.setStage(s.baseStage())
				s.alert(view.AlertDanger, "Error loading parts: "+userMessage(err))
				return
			}

			s.parts = parts
			if len(parts) == 0 {
				s.partsState = view.PartsEmpty
				s.setStage(StagePartsEmpty)
			} else {
				s.partsState = view.PartsListed
				s.setStage(StagePartsLoaded)
				if s.student != nil {
					s.loadBadges()
				}
			}
			s.render()
		},
	)
}

// loadBadges fetches per-part statuses. Failures are only logged.
func (s *signoffSessionImpl) loadBadges() {
	s.epoch.badges++
	epoch := s.epoch.badges
	studentID, labID := s.student.ID, s.labID

	eventloop.Await(s.loop, context.Background(),
		func(ctx context.Context) ([]model.PartStatus, error) {
			return s.signRepo.FindStatusesByLab(ctx, studentID, labID)
		},
		func(statuses []model.PartStatus, err error) {
			if err != nil {
				log.Error().Err(err).Uint("studentID", studentID).Uint("labID", labID).Msg("SignoffSession: error loading part statuses")
				return
			}
			if !s.current("badges", epoch, s.epoch.badges) {
				return
			}
			if s.student == nil || s.student.ID != studentID || s.labID != labID {
				log.Warn().Uint("studentID", studentID).Uint("labID", labID).Msg("SignoffSession: part statuses belong to another selection")
				return
			}
			for _, st := range statuses {
				s.statuses[st.PartID] = st.Status
			}
			s.render()
		},
	)
}

func (s *signoffSessionImpl) loadCriteria(part *model.Part) {
	s.invalidateForm()
	s.part = part
	epoch := s.epoch.criteria
	partID := part.ID

	s.setStage(StageCriteriaLoading)
	s.busy++
	s.render()

	log.Info().Uint("partID", partID).Msg("SignoffSession: loading criteria")
	eventloop.Await(s.loop, context.Background(),
		func(ctx context.Context) (model.Rubric, error) {
			return s.critRepo.FindByPart(ctx, partID)
		},
		func(rubric model.Rubric, err error) {
			s.busy--
			if !s.current("criteria", epoch, s.epoch.criteria) {
				s.render()
				return
			}
			if s.part == nil || s.part.ID != partID {
				log.Warn().Uint("partID", partID).Msg("SignoffSession: criteria belong to a part that is no longer selected")
				s.render()
				return
			}
			if err != nil {
				log.Error().Err(err).Uint("partID", partID).Msg("SignoffSession: error loading criteria")
				s.part = nil
				s.setStage(s.partsStage())
				s.alert(view.AlertDanger, "Error loading criteria: "+userMessage(err))
				return
			}

			if len(rubric.Criteria) == 0 {
				log.Debug().Uint("partID", partID).Msg("SignoffSession: no criteria from server, using defaults")
			}
			s.form = NewSignoffForm(rubric)
			s.setStage(StageFormReady)
			if s.student != nil {
				s.lookup()
				return
			}
			s.render()
		},
	)
}

func (s *signoffSessionImpl) lookup() {
	if s.student == nil || s.part == nil {
		s.render()
		return
	}
	s.epoch.lookup++
	epoch := s.epoch.lookup
	studentID, partID := s.student.ID, s.part.ID

	s.setStage(StageSignoffLookup)
	s.busy++
	s.render()

	eventloop.Await(s.loop, context.Background(),
		func(ctx context.Context) (model.ExistingSignoff, error) {
			return s.signRepo.FindDetails(ctx, studentID, partID)
		},
		func(existing model.ExistingSignoff, err error) {
			s.busy--
			if !s.current("lookup", epoch, s.epoch.lookup) {
				s.render()
				return
			}
			if s.form == nil || !s.selected(studentID, partID) {
				log.Warn().Uint("studentID", studentID).Uint("partID", partID).Msg("SignoffSession: signoff details belong to another selection")
				s.render()
				return
			}
			s.setStage(StageFormReady)
			if err != nil {
				log.Error().Err(err).Uint("studentID", studentID).Uint("partID", partID).Msg("SignoffSession: error loading signoff details")
				s.alert(view.AlertDanger, msgLookupFailed)
				return
			}

			if !existing.Found {
				s.form.Reset()
				s.history = nil
				s.render()
				return
			}
			s.form.Prefill(existing, s.converter)
			s.history = existing.History
			log.Info().Uint("studentID", studentID).Uint("partID", partID).Str("status", string(existing.Status)).Msg("SignoffSession: prefilled existing signoff")
			s.alert(view.AlertInfo, msgLoadedExisting)
		},
	)
}

func (s *signoffSessionImpl) submit() {
	if err := s.validate(); err != nil {
		log.Warn().Str("stage", s.stage.String()).Msg("SignoffSession: " + err.Error())
		s.alert(view.AlertWarning, err.Error())
		return
	}
	if s.stage == StageSubmitting {
		return
	}

	req := s.form.Payload(s.student.ID, s.part.ID)
	derived := s.converter.StatusForOverall(s.form.Overall())
	s.epoch.submit++
	epoch := s.epoch.submit
	partID := s.part.ID

	s.setStage(StageSubmitting)
	s.busy++
	s.render()

	log.Info().Uint("studentID", req.StudentID).Uint("partID", req.PartID).Int("overall", req.OverallScore).Str("derived", string(derived)).Msg("SignoffSession: submitting signoff")
	eventloop.Await(s.loop, context.Background(),
		func(ctx context.Context) (dto.QuickSignoffResponse, error) {
			return s.signRepo.Submit(ctx, req)
		},
		func(resp dto.QuickSignoffResponse, err error) {
			s.busy--
			if !s.current("submit", epoch, s.epoch.submit) {
				s.render()
				return
			}
			if s.form == nil || !s.selected(req.StudentID, partID) {
				log.Warn().Uint("studentID", req.StudentID).Uint("partID", partID).Bool("success", err == nil && resp.Success).Msg("SignoffSession: submission finished after the form was closed")
				s.render()
				return
			}
			if err != nil {
				log.Error().Err(err).Uint("partID", partID).Msg("SignoffSession: error submitting signoff")
				s.setStage(StageFormReady)
				s.alert(view.AlertDanger, msgSubmitFailed+": "+userMessage(err))
				return
			}
			if !resp.Success {
				msg := resp.Message
				if msg == "" {
					msg = resp.Error
				}
				if msg == "" {
					msg = msgSubmitFailed
				}
				log.Warn().Uint("partID", partID).Str("message", msg).Msg("SignoffSession: server rejected signoff")
				s.setStage(StageFormReady)
				s.alert(view.AlertDanger, msg)
				return
			}

			s.statuses[partID] = model.StatusApproved
			s.successVisible = true
			s.setStage(StageSubmitted)
			log.Info().Uint("partID", partID).Uint("signoffID", resp.SignoffID).Str("serverStatus", resp.Status).Msg("SignoffSession: signoff submitted")
			s.render()
		},
	)
}

func (s *signoffSessionImpl) validate() error {
	if s.student == nil {
		return errNoStudent
	}
	if s.part == nil || s.form == nil {
		return errNoPart
	}
	return nil
}

func (s *signoffSessionImpl) reset() {
	s.invalidateParts()
	s.student = nil
	s.partsState = view.PartsHidden
	s.successVisible = false
	s.setStage(StageNoStudent)
	log.Info().Msg("SignoffSession: reset")
	s.render()
}

func (s *signoffSessionImpl) alert(kind view.AlertKind, message string) {
	id := uuid.NewString()
	s.alerts = append(s.alerts, view.Alert{ID: id, Kind: kind, Message: message})
	if s.alertTTL > 0 {
		s.alertTimers[id] = s.loop.AfterFunc(s.alertTTL, func() { s.dismiss(id) })
	}
	s.render()
}

func (s *signoffSessionImpl) dismiss(id string) {
	if t, ok := s.alertTimers[id]; ok {
		t.Stop()
		delete(s.alertTimers, id)
	}
	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			s.render()
			return
		}
	}
}

func (s *signoffSessionImpl) render() {
	vm := view.SignoffViewModel{
		Student:        s.student,
		LabName:        s.labName,
		PartsState:     s.partsState,
		FormVisible:    s.form != nil,
		History:        s.history,
		Alerts:         s.alerts,
		Busy:           s.busy > 0,
		SuccessVisible: s.successVisible,
	}
	for _, p := range s.parts {
		vm.Parts = append(vm.Parts, view.PartRow{
			Part:     p,
			Status:   s.statuses[p.ID],
			Selected: s.part != nil && s.part.ID == p.ID,
		})
	}
	if s.part != nil {
		vm.PartName = s.part.Name
	}
	if s.form != nil {
		vm.Criteria = s.form.criterionRows()
		vm.Evaluation = s.form.evaluationRows()
		vm.Overall = s.form.Overall()
		vm.Comments = s.form.comments
	}
	s.renderer.Render(view.SignoffView(vm))
}

// userMessage is the text shown for a failed request.
func userMessage(err error) string {
	var httpErr *repository.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return err.Error()
}
