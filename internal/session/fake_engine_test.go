package session

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"

	"pdf-view-session/internal/domain"
)

// fakeEngine is a DocumentEngine over a list of page texts. Pages listed in
// failAt cannot be materialized, so navigating onto them fails.
type fakeEngine struct {
	mu sync.Mutex

	texts    []string
	open     bool
	page     int
	zoomMode domain.ZoomMode
	rotation domain.Rotation
	display  domain.DisplayMode
	flags    domain.RenderFlags
	failAt   map[int]bool
	closed   bool

	nextCalls int
	opens     int

	subs    map[int]func()
	nextSub int
}

func newFakeEngine(texts ...string) *fakeEngine {
	return &fakeEngine{
		texts:    texts,
		zoomMode: domain.ZoomFitWidth,
		display:  domain.DisplaySinglePage,
		failAt:   map[int]bool{},
		subs:     map[int]func(){},
	}
}

func fakePages(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "lorem ipsum"
	}
	return out
}

func (e *fakeEngine) setTexts(texts ...string) {
	e.mu.Lock()
	e.texts = texts
	e.mu.Unlock()
}

func (e *fakeEngine) failOn(pages ...int) {
	e.mu.Lock()
	e.failAt = map[int]bool{}
	for _, p := range pages {
		e.failAt[p] = true
	}
	e.mu.Unlock()
}

func (e *fakeEngine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (e *fakeEngine) Open(data []byte) error {
	if len(data) == 0 {
		return domain.ErrInvalidFile
	}
	if string(data) == "garbage" {
		return errors.New("no objects found")
	}
	e.mu.Lock()
	e.open = true
	e.page = 0
	e.opens++
	e.mu.Unlock()
	e.notify()
	return nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.open = false
	e.closed = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

func (e *fakeEngine) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return 0
	}
	return len(e.texts)
}

func (e *fakeEngine) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

func (e *fakeEngine) move(target int) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return nil
	}
	if target > len(e.texts)-1 {
		target = len(e.texts) - 1
	}
	if target < 0 {
		target = 0
	}
	if e.failAt[target] {
		e.mu.Unlock()
		return errors.New("page could not be rendered")
	}
	changed := target != e.page
	e.page = target
	e.mu.Unlock()
	if changed {
		e.notify()
	}
	return nil
}

func (e *fakeEngine) SetCurrentPage(index int) error { return e.move(index) }

func (e *fakeEngine) NextPage() error {
	e.mu.Lock()
	e.nextCalls++
	target := e.page + e.display.PageStep()
	e.mu.Unlock()
	return e.move(target)
}

func (e *fakeEngine) PreviousPage() error {
	e.mu.Lock()
	target := e.page - e.display.PageStep()
	e.mu.Unlock()
	return e.move(target)
}

func (e *fakeEngine) ZoomMode() domain.ZoomMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoomMode
}

func (e *fakeEngine) SetZoomMode(mode domain.ZoomMode) {
	e.mu.Lock()
	e.zoomMode = mode
	e.mu.Unlock()
	e.notify()
}

func (e *fakeEngine) ZoomIn()  { e.SetZoomMode(domain.ZoomCustom) }
func (e *fakeEngine) ZoomOut() { e.SetZoomMode(domain.ZoomCustom) }

func (e *fakeEngine) Rotation() domain.Rotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rotation
}

func (e *fakeEngine) Rotate(dir domain.RotateDirection) {
	e.mu.Lock()
	e.rotation = e.rotation.Turn(dir)
	e.mu.Unlock()
	e.notify()
}

func (e *fakeEngine) DisplayMode() domain.DisplayMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

func (e *fakeEngine) SetDisplayMode(mode domain.DisplayMode) {
	e.mu.Lock()
	e.display = mode
	e.mu.Unlock()
	e.notify()
}

func (e *fakeEngine) RenderFlags() domain.RenderFlags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flags
}

func (e *fakeEngine) SetRenderFlags(flags domain.RenderFlags) {
	e.mu.Lock()
	e.flags = flags
	e.mu.Unlock()
	e.notify()
}

func (e *fakeEngine) Information() (domain.Metadata, error) {
	if !e.IsOpen() {
		return domain.Metadata{}, domain.ErrNoDocument
	}
	title := "Fixture"
	return domain.Metadata{Title: &title}, nil
}

func (e *fakeEngine) PageText(index int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return "", domain.ErrNoDocument
	}
	if index < 0 || index >= len(e.texts) {
		return "", domain.ErrPageOutOfRange
	}
	return e.texts[index], nil
}

func (e *fakeEngine) Search(term string, matchCase, wholeWord bool) ([]domain.SearchMatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return nil, domain.ErrNoDocument
	}
	var out []domain.SearchMatch
	for i, text := range e.texts {
		hay, needle := text, term
		if !matchCase {
			hay, needle = strings.ToLower(hay), strings.ToLower(needle)
		}
		if idx := strings.Index(hay, needle); idx >= 0 {
			out = append(out, domain.SearchMatch{PageIndex: i, Text: text[idx : idx+len(term)]})
		}
	}
	return out, nil
}

func (e *fakeEngine) Rendered(index int) (image.Image, error) {
	if _, err := e.PageText(index); err != nil {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 2, 2)), nil
}

func (e *fakeEngine) Subscribe(fn func()) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *fakeEngine) subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// recordingFaults collects recorded sweep faults.
type recordingFaults struct {
	mu     sync.Mutex
	faults []domain.SweepFault
}

func (r *recordingFaults) RecordFault(_ context.Context, fault domain.SweepFault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, fault)
	return nil
}

func (r *recordingFaults) recorded() []domain.SweepFault {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SweepFault(nil), r.faults...)
}
