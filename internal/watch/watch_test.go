package watch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/papernet/internal/redisstore"
	"github.com/dyluth/papernet/pkg/ledger"
	"github.com/dyluth/papernet/pkg/paper"
)

func init() {
	color.NoColor = true
	PollInterval = 10 * time.Millisecond
}

type chanSource struct {
	events chan *paper.Event
	errors chan error
}

func newChanSource() *chanSource {
	return &chanSource{events: make(chan *paper.Event, 10), errors: make(chan error, 10)}
}

func (s *chanSource) Events() <-chan *paper.Event { return s.events }
func (s *chanSource) Errors() <-chan error        { return s.errors }

// syncBuffer is a bytes.Buffer safe for one writer goroutine and a polling reader
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func sampleEvent() *paper.Event {
	return &paper.Event{
		Action:      paper.ActionMatch,
		Importer:    "ACME",
		PaperNumber: 7,
		State:       paper.StateMatched,
		TxID:        "tx-1",
	}
}

func TestFormatters(t *testing.T) {
	t.Run("defaultFormatter writes one line per event", func(t *testing.T) {
		var buf bytes.Buffer
		f := &defaultFormatter{writer: &buf, now: func() time.Time {
			return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
		}}

		require.NoError(t, f.FormatEvent(sampleEvent()))

		assert.Equal(t, "[09:30:00] 🤝 match importer=ACME paper=7 state=MATCHED tx=tx-1\n", buf.String())
	})

	t.Run("jsonFormatter writes the event fields", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf}

		require.NoError(t, f.FormatEvent(sampleEvent()))

		out := buf.String()
		assert.Contains(t, out, `"action":"match"`)
		assert.Contains(t, out, `"paperNumber":7`)
		assert.Contains(t, out, `"txId":"tx-1"`)
	})
}

func TestStreamEvents(t *testing.T) {
	t.Run("stops when the source closes", func(t *testing.T) {
		src := newChanSource()
		src.events <- sampleEvent()
		src.errors <- errors.New("garbled")
		close(src.errors)
		close(src.events)

		var buf bytes.Buffer
		require.NoError(t, StreamEvents(context.Background(), src, OutputFormatJSON, &buf))
		assert.Contains(t, buf.String(), `"importer":"ACME"`)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var buf bytes.Buffer
		require.NoError(t, StreamEvents(ctx, newChanSource(), OutputFormatDefault, &buf))
		assert.Empty(t, buf.String())
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		err := StreamEvents(context.Background(), newChanSource(), OutputFormat("xml"), &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("streams committed operations from redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := redisstore.NewClient(&redis.Options{Addr: mr.Addr()}, "watch-test")
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := client.SubscribePaperEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		out := &syncBuffer{}
		done := make(chan error, 1)
		go func() { done <- StreamEvents(ctx, sub, OutputFormatDefault, out) }()

		c := paper.NewContract(client, paper.WithPublisher(client))
		_, err = c.Submit(ctx, paper.Submission{Importer: "ACME", PaperNumber: 1, Exporter: "DigiBank"})
		require.NoError(t, err)
		_, err = c.Cancel(ctx, "ACME", 1)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			s := out.String()
			return strings.Contains(s, "submit importer=ACME") &&
				strings.Contains(s, "cancel importer=ACME paper=1 state=CANCELED")
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})
}

func TestPollForState(t *testing.T) {
	ctx := context.Background()

	t.Run("waits for the paper to appear and advance", func(t *testing.T) {
		c := paper.NewContract(ledger.NewMemoryLedger())

		go func() {
			time.Sleep(30 * time.Millisecond)
			_, _ = c.Submit(ctx, paper.Submission{Importer: "ACME", PaperNumber: 1, Exporter: "DigiBank"})
			time.Sleep(30 * time.Millisecond)
			_, _ = c.Match(ctx, "ACME", 1, "DigiBank", "")
		}()

		p, err := PollForState(ctx, c, "ACME", 1, paper.StateMatched, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, paper.StateMatched, p.State())
	})

	t.Run("fails fast on another terminal state", func(t *testing.T) {
		c := paper.NewContract(ledger.NewMemoryLedger())
		_, err := c.Submit(ctx, paper.Submission{Importer: "ACME", PaperNumber: 1, Exporter: "DigiBank"})
		require.NoError(t, err)
		_, err = c.Cancel(ctx, "ACME", 1)
		require.NoError(t, err)

		p, err := PollForState(ctx, c, "ACME", 1, paper.StateFinished, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is CANCELED and can no longer reach FINISHED")
		assert.Equal(t, paper.StateCanceled, p.State())
	})

	t.Run("fails fast when the target is behind the paper", func(t *testing.T) {
		c := paper.NewContract(ledger.NewMemoryLedger())
		_, err := c.Submit(ctx, paper.Submission{Importer: "ACME", PaperNumber: 1, Exporter: "DigiBank"})
		require.NoError(t, err)
		_, err = c.Match(ctx, "ACME", 1, "DigiBank", "")
		require.NoError(t, err)
		_, err = c.Confirm(ctx, "ACME", 1)
		require.NoError(t, err)
		_, err = c.Clear(ctx, "ACME", 1)
		require.NoError(t, err)

		start := time.Now()
		p, err := PollForState(ctx, c, "ACME", 1, paper.StateFinished, 5*time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is CLEARED and can no longer reach FINISHED")
		assert.Equal(t, paper.StateCleared, p.State())
		assert.Less(t, time.Since(start), time.Second)

		_, err = PollForState(ctx, c, "ACME", 1, paper.StateMatched, 5*time.Second)
		assert.Contains(t, err.Error(), "can no longer reach MATCHED")
	})

	t.Run("times out", func(t *testing.T) {
		c := paper.NewContract(ledger.NewMemoryLedger())

		_, err := PollForState(ctx, c, "ACME", 1, paper.StateInvoiced, 50*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for INVOICED")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		c := paper.NewContract(ledger.NewMemoryLedger())
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := PollForState(cctx, c, "ACME", 1, paper.StateInvoiced, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
