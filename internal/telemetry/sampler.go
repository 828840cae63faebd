package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessSampler reports the resident set size of the current process.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler binds a sampler to the running process.
func NewProcessSampler() (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect process: %w", err)
	}
	return &ProcessSampler{proc: proc}, nil
}

// Sample returns the current RSS in bytes.
func (s *ProcessSampler) Sample(ctx context.Context) (uint64, error) {
	info, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return info.RSS, nil
}
