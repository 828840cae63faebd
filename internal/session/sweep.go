package session

import (
	"context"
	"errors"
	"time"

	"pdf-view-session/internal/domain"
	apperrors "pdf-view-session/pkg/errors"
)

const faultRecordTimeout = 5 * time.Second

// RunFullSweepRender visits every page from the first to the last, one
// engine step at a time, yielding to other intents between steps. An engine
// failure latches the session cancellation token: the remaining steps are
// skipped and later sweeps are rejected until ResetSweep is called.
func (c *Controller) RunFullSweepRender(ctx context.Context) (domain.SweepResult, error) {
	token, err := c.beginSweep()
	if err != nil {
		return domain.SweepResult{}, err
	}
	defer c.endSweep()

	start := time.Now()
	var result domain.SweepResult
	err = c.call(ctx, func() error {
		if !c.engine.IsOpen() {
			return domain.ErrNoDocument
		}
		result.PageCount = c.engine.PageCount()
		result.PageStep = c.engine.DisplayMode().PageStep()
		return c.engine.SetCurrentPage(0)
	})
	if err != nil {
		return result, c.sweepFailed(ctx, 0, 0, err)
	}

	last := result.PageCount - 1
	page := 0
	for page < last {
		if token.Err() != nil {
			return result, apperrors.NewInvalidStateError("render sweep cancelled", domain.ErrSweepCancelled)
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Other intents may have moved the page while the sweep yielded,
		// so each step starts from the live position.
		cur := page
		err := c.call(ctx, func() error {
			cur = c.engine.CurrentPage()
			page = cur
			if cur >= last {
				return nil
			}
			if err := c.engine.NextPage(); err != nil {
				return err
			}
			page = c.engine.CurrentPage()
			return nil
		})
		if err != nil {
			target := cur + result.PageStep
			if target > last {
				target = last
			}
			return result, c.sweepFailed(ctx, result.Steps+1, target, err)
		}
		if page == cur {
			// Already on the last page, or the engine stopped advancing.
			result.LastPage = page
			break
		}
		result.Steps++
		result.LastPage = page

		if page >= last {
			break
		}
		select {
		case <-time.After(c.yield):
		case <-token.Done():
		case <-ctx.Done():
		}
	}

	result.Duration = time.Since(start)
	if c.logger != nil {
		c.logger.Info("Render sweep completed", "pages", result.PageCount, "steps", result.Steps, "duration_ms", result.Duration.Milliseconds())
	}
	return result, nil
}

// CancelSweep latches the session cancellation token. A running sweep stops
// before its next step; new sweeps are rejected until ResetSweep.
func (c *Controller) CancelSweep() {
	c.latchSweep()
}

// ResetSweep clears a latched cancellation token so sweeps can run again.
func (c *Controller) ResetSweep() {
	c.sweepMu.Lock()
	if !c.sweepLatched {
		c.sweepMu.Unlock()
		return
	}
	c.sweepToken, c.cancelToken = context.WithCancel(context.Background())
	c.sweepLatched = false
	c.sweepMu.Unlock()

	c.do("sweep_reset", func() error {
		c.store.Update(func(s *State) { s.SweepCancelled = false })
		return nil
	})
}

func (c *Controller) beginSweep() (context.Context, error) {
	c.sweepMu.Lock()
	if c.sweepLatched {
		c.sweepMu.Unlock()
		return nil, apperrors.NewInvalidStateError("render sweep cancelled", domain.ErrSweepCancelled)
	}
	if c.sweepRunning {
		c.sweepMu.Unlock()
		return nil, apperrors.NewInvalidStateError("render sweep already running", domain.ErrSweepRunning)
	}
	c.sweepRunning = true
	token := c.sweepToken
	c.sweepMu.Unlock()

	c.do("sweep_start", func() error {
		c.store.Update(func(s *State) { s.SweepRunning = true })
		return nil
	})
	return token, nil
}

func (c *Controller) endSweep() {
	c.sweepMu.Lock()
	c.sweepRunning = false
	c.sweepMu.Unlock()

	c.do("sweep_end", func() error {
		c.store.Update(func(s *State) { s.SweepRunning = false })
		return nil
	})
}

func (c *Controller) latchSweep() {
	c.sweepMu.Lock()
	c.cancelToken()
	already := c.sweepLatched
	c.sweepLatched = true
	c.sweepMu.Unlock()

	if already {
		return
	}
	c.do("sweep_cancel", func() error {
		c.store.Update(func(s *State) { s.SweepCancelled = true })
		return nil
	})
}

// sweepFailed classifies a sweep error. A missing document, a caller that
// went away or a closed session end the sweep without latching; anything
// else is an engine fault.
func (c *Controller) sweepFailed(ctx context.Context, step, pageIndex int, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoDocument):
		return apperrors.NewInvalidStateError("no document open", err)
	case errors.Is(err, domain.ErrSessionClosed):
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	}

	c.latchSweep()
	if c.logger != nil {
		c.logger.Error("Render sweep aborted", err, "step", step, "page", pageIndex+1)
	}
	if c.faults != nil {
		recordCtx, cancel := context.WithTimeout(context.Background(), faultRecordTimeout)
		defer cancel()
		fault := domain.SweepFault{
			SessionID:  c.id,
			Step:       step,
			PageIndex:  pageIndex,
			Message:    err.Error(),
			OccurredAt: time.Now().UTC(),
		}
		if rerr := c.faults.RecordFault(recordCtx, fault); rerr != nil && c.logger != nil {
			c.logger.Warn("Failed to record sweep fault", "error", rerr)
		}
	}
	return apperrors.NewSweepAbortedError(step, pageIndex, err)
}
