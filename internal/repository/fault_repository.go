package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-view-session/internal/domain"
)

// LogFaultRecorder writes sweep faults to the application log.
type LogFaultRecorder struct {
	logger domain.Logger
}

func NewLogFaultRecorder(logger domain.Logger) *LogFaultRecorder {
	return &LogFaultRecorder{logger: logger}
}

func (r *LogFaultRecorder) RecordFault(_ context.Context, fault domain.SweepFault) error {
	r.logger.Warn("Sweep fault recorded",
		"session_id", fault.SessionID,
		"step", fault.Step,
		"page", fault.PageIndex+1,
		"message", fault.Message,
	)
	return nil
}

// SupabaseFaultRecorder inserts sweep faults into a Supabase table.
type SupabaseFaultRecorder struct {
	supabaseClient domain.SupabaseClient
	table          string
	logger         domain.Logger
}

// NewSupabaseFaultRecorder creates a recorder writing into table.
func NewSupabaseFaultRecorder(supabaseClient domain.SupabaseClient, table string, logger domain.Logger) *SupabaseFaultRecorder {
	return &SupabaseFaultRecorder{
		supabaseClient: supabaseClient,
		table:          table,
		logger:         logger,
	}
}

// RecordFault stores one fault row.
func (r *SupabaseFaultRecorder) RecordFault(ctx context.Context, fault domain.SweepFault) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client := r.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	_, _, err := client.From(r.table).Insert(faultRow(fault), false, "", "", "").Execute()
	if err != nil {
		r.logger.Error("Failed to insert sweep fault in Supabase", err, "session_id", fault.SessionID, "table", r.table)
		return fmt.Errorf("failed to record sweep fault: %w", err)
	}
	return nil
}

func faultRow(fault domain.SweepFault) map[string]interface{} {
	occurred := fault.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return map[string]interface{}{
		"session_id":  fault.SessionID,
		"step":        fault.Step,
		"page_number": fault.PageIndex + 1,
		"message":     fault.Message,
		"occurred_at": occurred.Format(time.RFC3339),
	}
}

// MultiFaultRecorder fans a fault out to every recorder and joins their errors.
type MultiFaultRecorder []domain.FaultRecorder

func (m MultiFaultRecorder) RecordFault(ctx context.Context, fault domain.SweepFault) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordFault(ctx, fault); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
