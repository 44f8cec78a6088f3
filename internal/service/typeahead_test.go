package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/labsignoff/internal/eventloop"
	"github.com/lshigami/labsignoff/internal/model"
	"github.com/lshigami/labsignoff/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = model.SearchResult{ID: 1, StudentID: "S100", Name: "Alice", Email: "a@x.com"}

type typeaheadFixture struct {
	loop  *eventloop.Loop
	repo  *fakeStudentRepo
	doc   *view.Document
	input *view.Field
	ta    SearchTypeahead
}

func newTypeahead(t *testing.T, repo *fakeStudentRepo, mutate func(*TypeaheadOptions)) *typeaheadFixture {
	t.Helper()
	loop := startLoop(t)
	doc := view.NewDocument()
	input := doc.Field(view.SearchInput)
	opts := DefaultTypeaheadOptions()
	opts.Delay = 20 * time.Millisecond
	if mutate != nil {
		mutate(&opts)
	}
	ta, err := NewSearchTypeahead(loop, repo, doc, input, opts)
	require.NoError(t, err)
	return &typeaheadFixture{loop: loop, repo: repo, doc: doc, input: input, ta: ta}
}

func (f *typeaheadFixture) typeText(text string) {
	f.input.SetValue(text)
	f.ta.HandleInput()
}

func (f *typeaheadFixture) waitState(t *testing.T, state TypeaheadState) TypeaheadSnapshot {
	t.Helper()
	var snap TypeaheadSnapshot
	require.Eventually(t, func() bool {
		snap = f.ta.Snapshot()
		return snap.State == state
	}, waitFor, tick)
	return snap
}

func TestTypeaheadRejectsInvalidOptions(t *testing.T) {
	loop := startLoop(t)
	doc := view.NewDocument()

	opts := DefaultTypeaheadOptions()
	opts.MinChars = 0
	_, err := NewSearchTypeahead(loop, &fakeStudentRepo{}, doc, doc.Field(view.SearchInput), opts)
	assert.True(t, IsValidation(err))

	opts = DefaultTypeaheadOptions()
	opts.Delay = -time.Millisecond
	_, err = NewSearchTypeahead(loop, &fakeStudentRepo{}, doc, doc.Field(view.SearchInput), opts)
	assert.Error(t, err)
}

func TestTypeaheadShortQueryIssuesNoRequest(t *testing.T) {
	f := newTypeahead(t, &fakeStudentRepo{}, nil)

	f.typeText("a")
	f.typeText(" b ")
	time.Sleep(60 * time.Millisecond)
	f.loop.Flush()

	assert.Empty(t, f.repo.calls())
	assert.Equal(t, TypeaheadIdle, f.ta.Snapshot().State)
	assert.False(t, f.doc.Visible(view.SearchResults))
}

func TestTypeaheadDebouncesToFinalQuery(t *testing.T) {
	f := newTypeahead(t, &fakeStudentRepo{}, func(o *TypeaheadOptions) { o.Delay = 80 * time.Millisecond })

	for _, q := range []string{"al", "ali", "alic", "alice"} {
		f.typeText(q)
	}
	f.waitState(t, TypeaheadShowing)
	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, []string{"alice"}, f.repo.calls())
}

func TestTypeaheadSameQueryIsNoop(t *testing.T) {
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": {alice}}}
	f := newTypeahead(t, repo, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)
	f.typeText(" ali ")
	time.Sleep(60 * time.Millisecond)
	f.loop.Flush()

	assert.Len(t, repo.calls(), 1)
}

func TestTypeaheadSelectWithKeyboard(t *testing.T) {
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": {alice}}}

	var mu sync.Mutex
	var viaOption, viaListener []model.SearchResult
	f := newTypeahead(t, repo, func(o *TypeaheadOptions) {
		o.OnSelect = func(r model.SearchResult) {
			mu.Lock()
			viaOption = append(viaOption, r)
			mu.Unlock()
		}
	})
	f.ta.Subscribe(SelectionListenerFunc(func(r model.SearchResult) {
		mu.Lock()
		viaListener = append(viaListener, r)
		mu.Unlock()
	}))

	f.typeText("ali")
	snap := f.waitState(t, TypeaheadShowing)
	require.Len(t, snap.Results, 1)
	assert.Len(t, f.doc.Children(view.SearchResults), 1)

	f.ta.HandleKey(KeyDown)
	f.ta.HandleKey(KeyEnter)
	f.waitState(t, TypeaheadIdle)

	assert.Equal(t, "Alice", f.input.Value())
	assert.False(t, f.doc.Visible(view.SearchResults))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []model.SearchResult{alice}, viaOption)
	assert.Equal(t, []model.SearchResult{alice}, viaListener)
}

func TestTypeaheadEnterWithoutHighlightDoesNothing(t *testing.T) {
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": {alice}}}
	f := newTypeahead(t, repo, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)
	f.ta.HandleKey(KeyEnter)

	assert.Equal(t, TypeaheadShowing, f.ta.Snapshot().State)
	assert.Equal(t, "ali", f.input.Value())
}

func TestTypeaheadArrowKeysWrap(t *testing.T) {
	results := []model.SearchResult{alice, {ID: 2, Name: "Alicia"}, {ID: 3, Name: "Alina"}}
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": results}}
	f := newTypeahead(t, repo, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)

	want := []int{0, 1, 2, 0, 1}
	for _, w := range want {
		f.ta.HandleKey(KeyDown)
		assert.Equal(t, w, f.ta.Snapshot().Highlighted)
	}
	for _, w := range []int{0, 2, 1, 0, 2} {
		f.ta.HandleKey(KeyUp)
		got := f.ta.Snapshot().Highlighted
		assert.Equal(t, w, got)
		assert.True(t, got >= 0 && got < len(results))
	}

	f.ta.HandleHover(1)
	assert.Equal(t, 1, f.ta.Snapshot().Highlighted)
	f.ta.HandleClick(2)
	f.waitState(t, TypeaheadIdle)
	assert.Equal(t, "Alina", f.input.Value())
}

func TestTypeaheadDiscardsStaleResponse(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeStudentRepo{
		results: map[string][]model.SearchResult{
			"al":  {{ID: 9, Name: "Al Stale"}},
			"ali": {alice},
		},
		gates: map[string]chan struct{}{"al": gate},
	}
	f := newTypeahead(t, repo, func(o *TypeaheadOptions) { o.Delay = 0 })

	f.typeText("al")
	require.Eventually(t, func() bool { return len(repo.calls()) == 1 }, waitFor, tick)

	f.typeText("ali")
	snap := f.waitState(t, TypeaheadShowing)
	require.Equal(t, []model.SearchResult{alice}, snap.Results)

	close(gate)
	require.Eventually(t, func() bool { return len(repo.calls()) == 2 }, waitFor, tick)
	time.Sleep(30 * time.Millisecond)
	f.loop.Flush()

	snap = f.ta.Snapshot()
	assert.Equal(t, TypeaheadShowing, snap.State)
	assert.Equal(t, []model.SearchResult{alice}, snap.Results)
}

func TestTypeaheadErrorPlaceholder(t *testing.T) {
	f := newTypeahead(t, &fakeStudentRepo{err: errors.New("connection refused")}, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)

	rows := f.doc.Children(view.SearchResults)
	require.Len(t, rows, 1)
	assert.Equal(t, "Error loading results", rows[0].Text)
	assert.True(t, f.doc.Visible(view.SearchResults))

	f.ta.HandleOutsideClick()
	f.waitState(t, TypeaheadIdle)
	assert.False(t, f.doc.Visible(view.SearchResults))
}

func TestTypeaheadNoResultsPlaceholder(t *testing.T) {
	f := newTypeahead(t, &fakeStudentRepo{}, func(o *TypeaheadOptions) { o.NoResultsText = "Nobody" })

	f.typeText("zz")
	f.waitState(t, TypeaheadShowing)

	rows := f.doc.Children(view.SearchResults)
	require.Len(t, rows, 1)
	assert.Equal(t, "Nobody", rows[0].Text)
}

func TestTypeaheadEscapeKeepsQueryAndFocusSearchesAgain(t *testing.T) {
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": {alice}}}
	f := newTypeahead(t, repo, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)
	f.ta.HandleKey(KeyDown)
	f.ta.HandleKey(KeyEscape)

	snap := f.waitState(t, TypeaheadIdle)
	assert.Equal(t, -1, snap.Highlighted)
	assert.Equal(t, "ali", snap.LastQuery)

	f.ta.HandleInput()
	time.Sleep(60 * time.Millisecond)
	f.loop.Flush()
	assert.Len(t, repo.calls(), 1)

	f.ta.HandleFocus()
	f.waitState(t, TypeaheadShowing)
	assert.Len(t, repo.calls(), 2)
}

func TestTypeaheadShortQueryResetsLastQuery(t *testing.T) {
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": {alice}}}
	f := newTypeahead(t, repo, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)
	f.typeText("a")
	f.waitState(t, TypeaheadIdle)
	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)

	assert.Len(t, repo.calls(), 2)
}

func TestTypeaheadClear(t *testing.T) {
	repo := &fakeStudentRepo{results: map[string][]model.SearchResult{"ali": {alice}}}
	f := newTypeahead(t, repo, nil)

	f.typeText("ali")
	f.waitState(t, TypeaheadShowing)
	f.ta.Clear()

	snap := f.waitState(t, TypeaheadIdle)
	assert.Empty(t, snap.LastQuery)
	assert.Empty(t, f.input.Value())
}
