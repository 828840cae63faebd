package engine

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"pdf-view-session/internal/domain"

	"github.com/patrickmn/go-cache"
)

const (
	zoomStep = 1.25
	minZoom  = 0.1
	maxZoom  = 10.0
)

// Options configures an Engine.
type Options struct {
	Opener         Opener
	ViewportWidth  int
	ViewportHeight int
	CacheTTL       time.Duration
	Logger         domain.Logger
}

// Engine is the go-fitz backed domain.DocumentEngine.
type Engine struct {
	mu sync.Mutex

	open   Opener
	logger domain.Logger

	doc       Document
	pageCount int
	page      int

	zoomMode    domain.ZoomMode
	zoom        float64
	rotation    domain.Rotation
	displayMode domain.DisplayMode
	flags       domain.RenderFlags

	viewportW int
	viewportH int

	renders *cache.Cache

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates an engine with no document loaded.
func New(opts Options) *Engine {
	if opts.Opener == nil {
		opts.Opener = FitzOpener
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1024
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 768
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Engine{
		open:        opts.Opener,
		logger:      opts.Logger,
		zoomMode:    domain.ZoomFitWidth,
		zoom:        1,
		displayMode: domain.DisplaySinglePage,
		viewportW:   opts.ViewportWidth,
		viewportH:   opts.ViewportHeight,
		renders:     cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		subs:        make(map[int]func()),
	}
}

// Open replaces the current document with data and materializes page 0.
// When data cannot be decoded or its first page cannot be rendered, the
// previously loaded document stays current.
func (e *Engine) Open(data []byte) error {
	if len(data) == 0 {
		return domain.ErrInvalidFile
	}
	doc, err := e.open(data)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}

	e.mu.Lock()
	prev, prevCount, prevPage := e.doc, e.pageCount, e.page
	e.doc = doc
	e.pageCount = doc.NumPage()
	e.page = 0
	e.renders.Flush()
	if e.pageCount > 0 {
		if _, err := e.renderLocked(0); err != nil {
			e.doc, e.pageCount, e.page = prev, prevCount, prevPage
			e.mu.Unlock()
			_ = doc.Close()
			return fmt.Errorf("failed to render first page: %w", err)
		}
	}
	pages := e.pageCount
	e.mu.Unlock()

	if prev != nil {
		if cerr := prev.Close(); cerr != nil && e.logger != nil {
			e.logger.Warn("Failed to close previous document", "error", cerr)
		}
	}
	if e.logger != nil {
		e.logger.Debug("Document opened", "pages", pages, "bytes", len(data))
	}
	e.notify()
	return nil
}

// Close releases the current document. Closing with nothing open is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	doc := e.doc
	e.doc = nil
	e.pageCount = 0
	e.page = 0
	e.renders.Flush()
	e.mu.Unlock()

	if doc == nil {
		return nil
	}
	err := doc.Close()
	e.notify()
	return err
}

func (e *Engine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc != nil
}

func (e *Engine) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageCount
}

func (e *Engine) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// SetCurrentPage moves to index clamped to the document.
func (e *Engine) SetCurrentPage(index int) error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil
	}
	return e.moveLocked(clamp(index, 0, e.pageCount-1))
}

// NextPage advances by the display-mode page step, stopping at the last page.
func (e *Engine) NextPage() error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil
	}
	return e.moveLocked(clamp(e.page+e.displayMode.PageStep(), 0, e.pageCount-1))
}

// PreviousPage steps back by the display-mode page step, stopping at page 0.
func (e *Engine) PreviousPage() error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil
	}
	return e.moveLocked(clamp(e.page-e.displayMode.PageStep(), 0, e.pageCount-1))
}

// moveLocked renders target before committing it so a failed render leaves
// the position untouched. It releases e.mu.
func (e *Engine) moveLocked(target int) error {
	if target == e.page {
		e.mu.Unlock()
		return nil
	}
	if _, err := e.renderLocked(target); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("render page %d: %w", target+1, err)
	}
	e.page = target
	e.mu.Unlock()
	e.notify()
	return nil
}

func (e *Engine) ZoomMode() domain.ZoomMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoomMode
}

func (e *Engine) SetZoomMode(mode domain.ZoomMode) {
	e.mu.Lock()
	if e.zoomMode == mode {
		e.mu.Unlock()
		return
	}
	e.zoomMode = mode
	e.mu.Unlock()
	e.notify()
}

// Zoom returns the effective zoom factor for the current page.
func (e *Engine) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveZoomLocked(e.page)
}

func (e *Engine) ZoomIn() {
	e.scaleZoom(zoomStep)
}

func (e *Engine) ZoomOut() {
	e.scaleZoom(1 / zoomStep)
}

func (e *Engine) scaleZoom(factor float64) {
	e.mu.Lock()
	base := e.effectiveZoomLocked(e.page)
	e.zoom = clampFloat(base*factor, minZoom, maxZoom)
	e.zoomMode = domain.ZoomCustom
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) Rotation() domain.Rotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rotation
}

func (e *Engine) Rotate(dir domain.RotateDirection) {
	e.mu.Lock()
	next := e.rotation.Turn(dir)
	if next == e.rotation {
		e.mu.Unlock()
		return
	}
	e.rotation = next
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) DisplayMode() domain.DisplayMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayMode
}

func (e *Engine) SetDisplayMode(mode domain.DisplayMode) {
	e.mu.Lock()
	if e.displayMode == mode {
		e.mu.Unlock()
		return
	}
	e.displayMode = mode
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) RenderFlags() domain.RenderFlags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flags
}

func (e *Engine) SetRenderFlags(flags domain.RenderFlags) {
	e.mu.Lock()
	if e.flags == flags {
		e.mu.Unlock()
		return
	}
	e.flags = flags
	e.mu.Unlock()
	e.notify()
}

// PageText returns the extracted text of page index.
func (e *Engine) PageText(index int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return "", domain.ErrNoDocument
	}
	if index < 0 || index >= e.pageCount {
		return "", domain.ErrPageOutOfRange
	}
	text, err := e.doc.Text(index)
	if err != nil {
		return "", err
	}
	return cleanText(text), nil
}

// Rendered returns page index rasterized with the current view settings.
func (e *Engine) Rendered(index int) (image.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, domain.ErrNoDocument
	}
	if index < 0 || index >= e.pageCount {
		return nil, domain.ErrPageOutOfRange
	}
	return e.renderLocked(index)
}

// Subscribe registers fn to run after each change. fn runs on the goroutine
// that made the change, outside the engine lock.
func (e *Engine) Subscribe(fn func()) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) notify() {
	e.subMu.Lock()
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var errEmptyPage = errors.New("page has no area")

var _ domain.DocumentEngine = (*Engine)(nil)
