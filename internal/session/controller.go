// Package session owns the view state of one open document and is the only
// caller of the document engine. Every engine call and every state write runs
// on a single control goroutine, in the order the intents were issued.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"pdf-view-session/internal/domain"
	apperrors "pdf-view-session/pkg/errors"
)

const defaultQueueSize = 64

// Options configures a Controller.
type Options struct {
	SessionID   string
	Engine      domain.DocumentEngine
	Logger      domain.Logger
	Faults      domain.FaultRecorder
	MaxFileSize int64
	SweepYield  time.Duration
	QueueSize   int
}

// Controller is the session controller.
type Controller struct {
	id          string
	engine      domain.DocumentEngine
	logger      domain.Logger
	faults      domain.FaultRecorder
	maxFileSize int64
	yield       time.Duration

	store *Store

	ops       chan func()
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by the control goroutine
	detachBridge func()

	sweepMu      sync.Mutex
	sweepToken   context.Context
	cancelToken  context.CancelFunc
	sweepLatched bool
	sweepRunning bool
}

// NewController starts the control loop of a new session.
func NewController(opts Options) *Controller {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SweepYield <= 0 {
		opts.SweepYield = time.Millisecond
	}
	c := &Controller{
		id:          opts.SessionID,
		engine:      opts.Engine,
		logger:      opts.Logger,
		faults:      opts.Faults,
		maxFileSize: opts.MaxFileSize,
		yield:       opts.SweepYield,
		ops:         make(chan func(), opts.QueueSize),
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	c.sweepToken, c.cancelToken = context.WithCancel(context.Background())
	c.store = NewStore(State{
		SessionID:   opts.SessionID,
		ZoomMode:    opts.Engine.ZoomMode(),
		DisplayMode: opts.Engine.DisplayMode(),
		Rotation:    opts.Engine.Rotation(),
		RenderFlags: opts.Engine.RenderFlags(),
	})
	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.closing:
			return
		}
	}
}

// call runs fn on the control goroutine and waits for it. Once enqueued, fn
// always runs to completion; ctx only bounds the wait for a queue slot.
func (c *Controller) call(ctx context.Context, fn func() error) error {
	var err error
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("engine panic: %v", r)
			}
		}()
		err = fn()
	}

	select {
	case c.ops <- op:
	case <-c.closing:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return err
	case <-c.done:
		return domain.ErrSessionClosed
	}
}

// post enqueues fn without waiting. It reports false when the queue is full
// or the session is closing.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	select {
	case c.ops <- fn:
		return true
	default:
		return false
	}
}

// do runs an intent that never fails from the caller's point of view.
func (c *Controller) do(name string, fn func() error) {
	if err := c.call(context.Background(), fn); err != nil && c.logger != nil {
		c.logger.Warn("Intent failed", "intent", name, "error", err)
	}
}

// SessionID returns the identifier of this session.
func (c *Controller) SessionID() string {
	return c.id
}

// State returns the current view state.
func (c *Controller) State() State {
	return c.store.Snapshot()
}

// Subscribe registers fn for every state change. fn runs on the control
// goroutine and must not call back into the controller.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

// OpenDocument reads the whole stream and hands it to the engine.
func (c *Controller) OpenDocument(ctx context.Context, r io.Reader) error {
	data, err := c.readDocument(r)
	if err != nil {
		return err
	}
	return c.call(ctx, func() error {
		if err := c.engine.Open(data); err != nil {
			if c.logger != nil {
				c.logger.Warn("Failed to open document", "bytes", len(data), "error", err)
			}
			return apperrors.NewDocumentOpenError(err)
		}
		c.attachBridge()
		c.store.Update(func(s *State) {
			s.SearchResults = nil
			c.mirrorEngine(s)
		})
		if c.logger != nil {
			c.logger.Info("Document opened", "pages", c.engine.PageCount(), "bytes", len(data))
		}
		return nil
	})
}

func (c *Controller) readDocument(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, apperrors.NewValidationError("document stream is required")
	}
	src := r
	if c.maxFileSize > 0 {
		src = io.LimitReader(r, c.maxFileSize+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, apperrors.NewDocumentOpenError(fmt.Errorf("read document: %w", err))
	}
	if c.maxFileSize > 0 && int64(buf.Len()) > c.maxFileSize {
		return nil, apperrors.NewValidationError("document too large", fmt.Sprintf("limit is %d bytes", c.maxFileSize))
	}
	return buf.Bytes(), nil
}

// SetDisplayedPage moves to the one-based page n, clamped to the document.
func (c *Controller) SetDisplayedPage(n int) {
	c.do("set_page", func() error {
		if !c.engine.IsOpen() {
			return nil
		}
		return c.engine.SetCurrentPage(clamp(n-1, 0, c.engine.PageCount()-1))
	})
}

func (c *Controller) NextPage() {
	c.do("next_page", c.engine.NextPage)
}

func (c *Controller) PreviousPage() {
	c.do("previous_page", c.engine.PreviousPage)
}

func (c *Controller) SetZoomMode(mode domain.ZoomMode) {
	c.do("zoom_mode", func() error {
		c.engine.SetZoomMode(mode)
		return c.syncDetached()
	})
}

func (c *Controller) ZoomIn() {
	c.do("zoom_in", func() error {
		c.engine.ZoomIn()
		return c.syncDetached()
	})
}

func (c *Controller) ZoomOut() {
	c.do("zoom_out", func() error {
		c.engine.ZoomOut()
		return c.syncDetached()
	})
}

func (c *Controller) Rotate(dir domain.RotateDirection) {
	c.do("rotate", func() error {
		c.engine.Rotate(dir)
		return c.syncDetached()
	})
}

func (c *Controller) SetDisplayMode(mode domain.DisplayMode) {
	c.do("display_mode", func() error {
		c.engine.SetDisplayMode(mode)
		return c.syncDetached()
	})
}

// ToggleRenderFlag flips exactly flag and writes the whole set back.
func (c *Controller) ToggleRenderFlag(flag domain.RenderFlags) {
	c.do("toggle_flag", func() error {
		c.engine.SetRenderFlags(c.engine.RenderFlags().Toggle(flag))
		return c.syncDetached()
	})
}

// RenderFlags returns the engine's current flag set.
func (c *Controller) RenderFlags() domain.RenderFlags {
	var flags domain.RenderFlags
	c.do("render_flags", func() error {
		flags = c.engine.RenderFlags()
		return nil
	})
	return flags
}

// FetchMetadata returns a fresh metadata snapshot.
func (c *Controller) FetchMetadata() (domain.Metadata, error) {
	var meta domain.Metadata
	err := c.call(context.Background(), func() error {
		var err error
		meta, err = c.engine.Information()
		return err
	})
	return meta, c.invalidState(err)
}

// FetchPageText returns the text of a page index the caller captured earlier.
func (c *Controller) FetchPageText(pageIndex int) (string, error) {
	var text string
	err := c.call(context.Background(), func() error {
		var err error
		text, err = c.engine.PageText(pageIndex)
		return err
	})
	return text, c.invalidState(err)
}

// CurrentPageText captures the current page and fetches its text in one step.
func (c *Controller) CurrentPageText() (domain.PageText, error) {
	var out domain.PageText
	err := c.call(context.Background(), func() error {
		out.PageIndex = c.engine.CurrentPage()
		var err error
		out.Text, err = c.engine.PageText(out.PageIndex)
		return err
	})
	return out, c.invalidState(err)
}

// RenderPage returns page index rasterized with the current view settings.
func (c *Controller) RenderPage(pageIndex int) (image.Image, error) {
	var img image.Image
	err := c.call(context.Background(), func() error {
		var err error
		img, err = c.engine.Rendered(pageIndex)
		return err
	})
	return img, c.invalidState(err)
}

// ToggleSearchPanel flips the search panel visibility.
func (c *Controller) ToggleSearchPanel() {
	c.do("toggle_search", func() error {
		c.store.Update(func(s *State) { s.IsSearchOpen = !s.IsSearchOpen })
		return nil
	})
}

// SetStatus publishes text as the status line without waiting for the
// control loop. It reports false when the update was dropped.
func (c *Controller) SetStatus(text string) bool {
	return c.post(func() {
		c.store.Update(func(s *State) { s.StatusText = text })
	})
}

// Close tears the session down: the sweep token is cancelled, the bridge is
// detached, the engine released and observers dropped. It is idempotent.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.sweepMu.Lock()
		c.cancelToken()
		c.sweepMu.Unlock()

		err = c.call(context.Background(), func() error {
			if c.detachBridge != nil {
				c.detachBridge()
				c.detachBridge = nil
			}
			return c.engine.Close()
		})
		close(c.closing)
		<-c.done
		c.store.DetachAll()
		if c.logger != nil {
			c.logger.Info("Session closed")
		}
	})
	return err
}

// invalidState maps a missing document to an InvalidState error.
func (c *Controller) invalidState(err error) error {
	if errors.Is(err, domain.ErrNoDocument) {
		return apperrors.NewInvalidStateError("no document open", err)
	}
	if errors.Is(err, domain.ErrPageOutOfRange) {
		verr := apperrors.NewValidationError("page index out of range")
		verr.Cause = err
		return verr
	}
	return err
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
