package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/eventloop"
	"github.com/lshigami/labsignoff/internal/model"
	"github.com/lshigami/labsignoff/internal/repository"
	"github.com/lshigami/labsignoff/internal/view"
	"github.com/rs/zerolog/log"
)

type TypeaheadState int

const (
	TypeaheadIdle TypeaheadState = iota
	TypeaheadDebouncing
	TypeaheadLoading
	TypeaheadShowing
)

func (s TypeaheadState) String() string {
	switch s {
	case TypeaheadIdle:
		return "idle"
	case TypeaheadDebouncing:
		return "debouncing"
	case TypeaheadLoading:
		return "loading"
	case TypeaheadShowing:
		return "showing"
	default:
		return "unknown"
	}
}

type Key int

const (
	KeyDown Key = iota
	KeyUp
	KeyEnter
	KeyEscape
)

// InputField is the text control the typeahead is attached to.
type InputField interface {
	Value() string
	SetValue(string)
}

// SelectionListener is notified on the event loop when a result is committed.
type SelectionListener interface {
	StudentSelected(result model.SearchResult)
}

type SelectionListenerFunc func(result model.SearchResult)

func (f SelectionListenerFunc) StudentSelected(result model.SearchResult) { f(result) }

type TypeaheadOptions struct {
	MinChars           int
	Delay              time.Duration
	ResultsContainerID string
	OnSelect           func(model.SearchResult)
	SearchEndpoint     string
	Placeholder        string
	NoResultsText      string
	LoadingText        string
	ErrorText          string
}

func DefaultTypeaheadOptions() TypeaheadOptions {
	return TypeaheadOptions{
		MinChars:           2,
		Delay:              300 * time.Millisecond,
		ResultsContainerID: view.SearchResults,
		SearchEndpoint:     repository.DefaultSearchEndpoint,
		Placeholder:        "Search by name or ID...",
		NoResultsText:      "No students found",
		LoadingText:        "Searching...",
		ErrorText:          "Error loading results",
	}
}

// TypeaheadOptionsFromConfig overrides the defaults with configured values.
func TypeaheadOptionsFromConfig(cfg *config.Config) TypeaheadOptions {
	opts := DefaultTypeaheadOptions()
	opts.MinChars = cfg.Typeahead.MinChars
	opts.Delay = time.Duration(cfg.Typeahead.DelayMs) * time.Millisecond
	if cfg.API.SearchEndpoint != "" {
		opts.SearchEndpoint = cfg.API.SearchEndpoint
	}
	return opts
}

func (o TypeaheadOptions) validate() error {
	if o.MinChars < 1 {
		return invalidField("minChars", "minChars must be at least 1, got %d", o.MinChars)
	}
	if o.Delay < 0 {
		return invalidField("delayMs", "delay must not be negative, got %s", o.Delay)
	}
	return nil
}

// TypeaheadSnapshot is a read-only copy of the widget state.
type TypeaheadSnapshot struct {
	State       TypeaheadState
	LastQuery   string
	Results     []model.SearchResult
	Highlighted int
}

type SearchTypeahead interface {
	// HandleInput reacts to a change of the input's value.
	HandleInput()
	HandleKey(key Key)
	HandleFocus()
	HandleOutsideClick()
	HandleHover(index int)
	HandleClick(index int)
	// Clear empties the input and hides the results.
	Clear()
	Subscribe(listener SelectionListener)
	Snapshot() TypeaheadSnapshot
	Placeholder() string
}

type searchTypeaheadImpl struct {
	loop     *eventloop.Loop
	repo     repository.StudentRepository
	renderer view.Renderer
	input    InputField
	opts     TypeaheadOptions

	// Fields below are only touched on the loop.
	state       TypeaheadState
	lastQuery   string
	results     []model.SearchResult
	highlighted int
	placeholder view.PlaceholderKind
	timer       *eventloop.Timer
	listeners   []SelectionListener
}

func NewSearchTypeahead(loop *eventloop.Loop, repo repository.StudentRepository, renderer view.Renderer, input InputField, opts TypeaheadOptions) (SearchTypeahead, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, errors.New("typeahead: input field is required")
	}
	defaults := DefaultTypeaheadOptions()
	if opts.ResultsContainerID == "" {
		opts.ResultsContainerID = defaults.ResultsContainerID
	}
	if opts.SearchEndpoint == "" {
		opts.SearchEndpoint = defaults.SearchEndpoint
	}
	if opts.Placeholder == "" {
		opts.Placeholder = defaults.Placeholder
	}
	if opts.NoResultsText == "" {
		opts.NoResultsText = defaults.NoResultsText
	}
	if opts.LoadingText == "" {
		opts.LoadingText = defaults.LoadingText
	}
	if opts.ErrorText == "" {
		opts.ErrorText = defaults.ErrorText
	}
	return &searchTypeaheadImpl{
		loop:        loop,
		repo:        repo,
		renderer:    renderer,
		input:       input,
		opts:        opts,
		highlighted: -1,
	}, nil
}

func (s *searchTypeaheadImpl) Placeholder() string {
	return s.opts.Placeholder
}

func (s *searchTypeaheadImpl) HandleInput() { s.loop.Post(s.onInput) }
func (s *searchTypeaheadImpl) HandleKey(key Key) { s.loop.Post(func() { s.onKey(key) }) }
func (s *searchTypeaheadImpl) HandleFocus() { s.loop.Post(s.onFocus) }
func (s *searchTypeaheadImpl) HandleOutsideClick() { s.loop.Post(s.hide) }
func (s *searchTypeaheadImpl) HandleHover(index int) { s.loop.Post(func() { s.onHover(index) }) }
func (s *searchTypeaheadImpl) HandleClick(index int) { s.loop.Post(func() { s.onClick(index) }) }
func (s *searchTypeaheadImpl) Clear() { s.loop.Post(s.clear) }

func (s *searchTypeaheadImpl) Subscribe(listener SelectionListener) {
	s.loop.Post(func() { s.listeners = append(s.listeners, listener) })
}

func (s *searchTypeaheadImpl) Snapshot() TypeaheadSnapshot {
	var snap TypeaheadSnapshot
	s.loop.Call(func() {
		snap = TypeaheadSnapshot{
			State:       s.state,
			LastQuery:   s.lastQuery,
			Results:     append([]model.SearchResult(nil), s.results...),
			Highlighted: s.highlighted,
		}
	})
	return snap
}

func (s *searchTypeaheadImpl) onInput() {
	query := strings.TrimSpace(s.input.Value())

	if len([]rune(query)) < s.opts.MinChars {
		s.timer.Stop()
		s.timer = nil
		// A later identical query must search again.
		s.lastQuery = ""
		s.hide()
		return
	}
	if query == s.lastQuery {
		return
	}

	s.lastQuery = query
	s.timer.Stop()
	s.state = TypeaheadDebouncing
	s.timer = s.loop.AfterFunc(s.opts.Delay, func() {
		s.timer = nil
		s.search(query)
	})
}

func (s *searchTypeaheadImpl) onFocus() {
	query := strings.TrimSpace(s.input.Value())
	if len([]rune(query)) < s.opts.MinChars {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.lastQuery = query
	s.search(query)
}

func (s *searchTypeaheadImpl) search(query string) {
	s.state = TypeaheadLoading
	s.results = nil
	s.highlighted = -1
	s.placeholder = view.PlaceholderLoading
	s.render()

	log.Debug().Str("query", query).Msg("Typeahead: searching")
	eventloop.Await(s.loop, context.Background(),
		func(ctx context.Context) ([]model.SearchResult, error) {
			return s.repo.Search(ctx, s.opts.SearchEndpoint, query)
		},
		func(results []model.SearchResult, err error) {
			s.onResults(query, results, err)
		},
	)
}

func (s *searchTypeaheadImpl) onResults(query string, results []model.SearchResult, err error) {
	if query != s.lastQuery || s.state != TypeaheadLoading {
		log.Debug().Str("query", query).Str("latest", s.lastQuery).Str("state", s.state.String()).Msg("Typeahead: discarding stale response")
		return
	}

	s.state = TypeaheadShowing
	s.highlighted = -1
	switch {
	case err != nil:
		log.Error().Err(err).Str("query", query).Msg("Typeahead: error fetching student data")
		s.results = nil
		s.placeholder = view.PlaceholderError
	case len(results) == 0:
		s.results = nil
		s.placeholder = view.PlaceholderEmpty
	default:
		s.results = results
		s.placeholder = view.PlaceholderNone
	}
	s.render()
}

func (s *searchTypeaheadImpl) onKey(key Key) {
	// Keys only act while the panel is open.
	if s.state != TypeaheadShowing {
		return
	}
	n := len(s.results)
	switch key {
	case KeyDown:
		if n == 0 {
			return
		}
		s.highlighted = (s.highlighted + 1) % n
		s.render()
	case KeyUp:
		if n == 0 {
			return
		}
		if s.highlighted < 0 {
			s.highlighted = 0
		}
		s.highlighted = (s.highlighted - 1 + n) % n
		s.render()
	case KeyEnter:
		if s.highlighted >= 0 && s.highlighted < n {
			s.commit(s.results[s.highlighted])
		}
	case KeyEscape:
		s.hide()
	}
}

func (s *searchTypeaheadImpl) onHover(index int) {
	if s.state != TypeaheadShowing || index < 0 || index >= len(s.results) {
		return
	}
	s.highlighted = index
	s.render()
}

func (s *searchTypeaheadImpl) onClick(index int) {
	if s.state != TypeaheadShowing || index < 0 || index >= len(s.results) {
		return
	}
	s.commit(s.results[index])
}

func (s *searchTypeaheadImpl) commit(result model.SearchResult) {
	s.input.SetValue(result.Name)
	s.hide()
	log.Info().Uint("studentID", result.ID).Str("studentNumber", result.StudentID).Msg("Typeahead: student selected")

	if s.opts.OnSelect != nil {
		s.opts.OnSelect(result)
	}
	for _, l := range s.listeners {
		l.StudentSelected(result)
	}
}

// hide closes the panel. lastQuery is kept so reopening the same text does
// not search again; focus does.
func (s *searchTypeaheadImpl) hide() {
	s.state = TypeaheadIdle
	s.highlighted = -1
	s.placeholder = view.PlaceholderNone
	s.render()
}

func (s *searchTypeaheadImpl) clear() {
	s.timer.Stop()
	s.timer = nil
	s.lastQuery = ""
	s.results = nil
	s.input.SetValue("")
	s.hide()
}

func (s *searchTypeaheadImpl) render() {
	vm := view.TypeaheadViewModel{
		ContainerID: s.opts.ResultsContainerID,
		Visible:     s.state == TypeaheadLoading || s.state == TypeaheadShowing,
		Placeholder: s.placeholder,
		Results:     s.results,
		Highlighted: s.highlighted,
	}
	switch s.placeholder {
	case view.PlaceholderLoading:
		vm.PlaceholderText = s.opts.LoadingText
	case view.PlaceholderEmpty:
		vm.PlaceholderText = s.opts.NoResultsText
	case view.PlaceholderError:
		vm.PlaceholderText = s.opts.ErrorText
	}
	s.renderer.Render(view.TypeaheadView(vm))
}
