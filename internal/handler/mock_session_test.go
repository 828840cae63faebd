package handler

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
	"sync"
	"time"

	"pdf-view-session/internal/domain"
	"pdf-view-session/internal/session"
	apperrors "pdf-view-session/pkg/errors"
)

// MockSessionController is an in-memory SessionController over page texts.
type MockSessionController struct {
	mu        sync.Mutex
	state     session.State
	texts     []string
	opened    []byte
	openErr   error
	sweepErr  error
	cancelled int
	resets    int
	subs      map[int]func(session.State)
	nextSub   int
}

func NewMockSessionController(texts ...string) *MockSessionController {
	return &MockSessionController{
		texts: texts,
		state: session.State{
			SessionID:   "mock-session",
			ZoomMode:    domain.ZoomFitWidth,
			DisplayMode: domain.DisplaySinglePage,
		},
		subs: make(map[int]func(session.State)),
	}
}

func (m *MockSessionController) update(fn func(*session.State)) {
	m.mu.Lock()
	fn(&m.state)
	m.state.Version++
	snap := m.state
	subs := make([]func(session.State), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()
	for _, s := range subs {
		s(snap)
	}
}

func (m *MockSessionController) State() session.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockSessionController) Subscribe(fn func(session.State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *MockSessionController) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *MockSessionController) OpenDocument(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = data
	m.update(func(s *session.State) {
		s.DocumentOpen = true
		s.PageCount = len(m.texts)
		s.DisplayedPage = 1
		s.SearchResults = nil
	})
	return nil
}

func (m *MockSessionController) SetDisplayedPage(n int) {
	m.update(func(s *session.State) {
		if !s.DocumentOpen {
			return
		}
		if n < 1 {
			n = 1
		}
		if n > s.PageCount {
			n = s.PageCount
		}
		s.DisplayedPage = n
	})
}

func (m *MockSessionController) NextPage() { m.SetDisplayedPage(m.State().DisplayedPage + 1) }

func (m *MockSessionController) PreviousPage() { m.SetDisplayedPage(m.State().DisplayedPage - 1) }

func (m *MockSessionController) SetZoomMode(mode domain.ZoomMode) {
	m.update(func(s *session.State) { s.ZoomMode = mode })
}

func (m *MockSessionController) ZoomIn()  { m.SetZoomMode(domain.ZoomCustom) }
func (m *MockSessionController) ZoomOut() { m.SetZoomMode(domain.ZoomCustom) }

func (m *MockSessionController) Rotate(dir domain.RotateDirection) {
	m.update(func(s *session.State) { s.Rotation = s.Rotation.Turn(dir) })
}

func (m *MockSessionController) SetDisplayMode(mode domain.DisplayMode) {
	m.update(func(s *session.State) { s.DisplayMode = mode })
}

func (m *MockSessionController) ToggleRenderFlag(flag domain.RenderFlags) {
	m.update(func(s *session.State) { s.RenderFlags = s.RenderFlags.Toggle(flag) })
}

func (m *MockSessionController) RenderFlags() domain.RenderFlags {
	return m.State().RenderFlags
}

func (m *MockSessionController) RunFullSweepRender(ctx context.Context) (domain.SweepResult, error) {
	if m.sweepErr != nil {
		return domain.SweepResult{}, m.sweepErr
	}
	state := m.State()
	if !state.DocumentOpen {
		return domain.SweepResult{}, apperrors.NewInvalidStateError("no document open", domain.ErrNoDocument)
	}
	m.SetDisplayedPage(state.PageCount)
	return domain.SweepResult{
		Steps:     state.PageCount - 1,
		PageStep:  1,
		LastPage:  state.PageCount - 1,
		PageCount: state.PageCount,
		Duration:  3 * time.Millisecond,
	}, nil
}

func (m *MockSessionController) CancelSweep() {
	m.cancelled++
	m.update(func(s *session.State) { s.SweepCancelled = true })
}

func (m *MockSessionController) ResetSweep() {
	m.resets++
	m.update(func(s *session.State) { s.SweepCancelled = false })
}

func (m *MockSessionController) FetchMetadata() (domain.Metadata, error) {
	if !m.State().DocumentOpen {
		return domain.Metadata{}, apperrors.NewInvalidStateError("no document open", domain.ErrNoDocument)
	}
	title := "Mock Title"
	return domain.Metadata{Title: &title}, nil
}

func (m *MockSessionController) FetchPageText(pageIndex int) (string, error) {
	if !m.State().DocumentOpen {
		return "", apperrors.NewInvalidStateError("no document open", domain.ErrNoDocument)
	}
	if pageIndex < 0 || pageIndex >= len(m.texts) {
		return "", apperrors.NewValidationError("page index out of range")
	}
	return m.texts[pageIndex], nil
}

func (m *MockSessionController) CurrentPageText() (domain.PageText, error) {
	index := m.State().DisplayedPage - 1
	text, err := m.FetchPageText(index)
	if err != nil {
		return domain.PageText{}, err
	}
	return domain.PageText{PageIndex: index, Text: text}, nil
}

func (m *MockSessionController) RenderPage(pageIndex int) (image.Image, error) {
	if _, err := m.FetchPageText(pageIndex); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	return img, nil
}

func (m *MockSessionController) RunSearch(term string, matchCase, wholeWord bool) (domain.SearchReport, error) {
	report := domain.SearchReport{Term: term}
	if term == "" {
		return report, nil
	}
	if !m.State().DocumentOpen {
		return report, apperrors.NewInvalidStateError("no document open", domain.ErrNoDocument)
	}
	for i, text := range m.texts {
		if strings.Contains(strings.ToLower(text), strings.ToLower(term)) {
			report.Matches = append(report.Matches, domain.SearchMatch{PageIndex: i, Text: term})
			report.Lines = append(report.Lines, fmt.Sprintf("Found \"%s\" in page: %d", term, i+1))
		}
	}
	return report, nil
}

func (m *MockSessionController) ToggleSearchPanel() {
	m.update(func(s *session.State) { s.IsSearchOpen = !s.IsSearchOpen })
}

// MockDocumentSource serves documents from a map.
type MockDocumentSource struct {
	docs map[string][]byte
}

func (s *MockDocumentSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	data, ok := s.docs[path]
	if !ok {
		return nil, apperrors.NewNotFoundError("document not found")
	}
	return data, nil
}

// stubConfig carries the router settings used by tests.
type stubConfig struct {
	domain.Config
	origins   []string
	rateLimit int
}

func (c stubConfig) GetAllowedOrigins() []string { return c.origins }
func (c stubConfig) GetRateLimitPerMinute() int  { return c.rateLimit }
