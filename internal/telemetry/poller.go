// Package telemetry publishes periodic process metrics into the session
// status line.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdf-view-session/internal/domain"
)

const bytesPerMB = 1024 * 1024

// Sink receives one formatted status line. It reports false when the line
// was dropped.
type Sink func(text string) bool

// Poller samples process memory on a fixed interval and writes
// "Memory: N MB" through its sink.
type Poller struct {
	sampler  domain.MemorySampler
	interval time.Duration
	sink     Sink
	logger   domain.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewPoller creates a stopped poller.
func NewPoller(sampler domain.MemorySampler, interval time.Duration, sink Sink, logger domain.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		sampler:  sampler,
		interval: interval,
		sink:     sink,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins sampling until ctx is done or Stop is called. Only the first
// call has an effect, and a stopped poller never starts again.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	go p.run(ctx)
}

// Stop ends sampling and waits for the poll loop to exit. Safe to call more
// than once.
func (p *Poller) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		started := p.started
		p.mu.Unlock()

		close(p.stop)
		if started {
			<-p.done
		}
	})
}

// Run starts the poller and blocks until ctx is done or Stop is called.
func (p *Poller) Run(ctx context.Context) error {
	p.Start(ctx)
	select {
	case <-ctx.Done():
	case <-p.stop:
	}
	p.Stop()
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	rss, err := p.sampler.Sample(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Debug("Memory sample failed", "error", err)
		}
		return
	}
	if !p.sink(FormatMemory(rss)) && p.logger != nil {
		p.logger.Debug("Status update dropped")
	}
}

// FormatMemory renders a byte count as whole mebibytes.
func FormatMemory(bytes uint64) string {
	return fmt.Sprintf("Memory: %d MB", bytes/bytesPerMB)
}
