// Package watch follows papers as they change: streaming published events,
// or polling the ledger until a paper reaches a state.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dyluth/papernet/pkg/ledger"
	"github.com/dyluth/papernet/pkg/paper"
)

// OutputFormat specifies how streamed events are written.
type OutputFormat string

const (
	// OutputFormatDefault writes one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON writes each event as line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// PollInterval is how often PollForState re-reads the ledger.
var PollInterval = 200 * time.Millisecond

// EventSource is a live feed of paper events, such as a Redis subscription.
type EventSource interface {
	Events() <-chan *paper.Event
	Errors() <-chan error
}

// Querier reads a single paper.
type Querier interface {
	Query(ctx context.Context, importer string, paperNumber int64) (*paper.ImportPaper, error)
}

// StreamEvents writes events from src to w until ctx is done or the source
// closes. Source errors are logged and skipped.
func StreamEvents(ctx context.Context, src EventSource, format OutputFormat, w io.Writer) error {
	var f formatter
	switch format {
	case OutputFormatDefault:
		f = &defaultFormatter{writer: w}
	case OutputFormatJSON:
		f = &jsonFormatter{writer: w}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	events := src.Events()
	errs := src.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := f.FormatEvent(event); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[WARN] Skipping paper event: %v", err)
		}
	}
}

// PollForState polls until the paper reaches want and returns it. A paper
// that does not exist yet is waited for. A paper in a state from which want
// can no longer be reached fails immediately.
func PollForState(ctx context.Context, q Querier, importer string, paperNumber int64, want paper.State, timeout time.Duration) (*paper.ImportPaper, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		p, err := q.Query(ctx, importer, paperNumber)
		switch {
		case err == nil && p.State() == want:
			return p, nil
		case err == nil && !p.State().CanReach(want):
			return p, fmt.Errorf("paper %s %d is %s and can no longer reach %s", importer, paperNumber, p.State(), want)
		case err != nil && !errors.Is(err, ledger.ErrNotFound):
			return nil, fmt.Errorf("failed to query paper: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for %s after %v", want, timeout)

		case <-ticker.C:
		}
	}
}
