package paper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/papernet/pkg/ledger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func setupContract(t *testing.T, opts ...Option) (*Contract, *ledger.MemoryLedger) {
	t.Helper()
	l := ledger.NewMemoryLedger()
	return NewContract(l, opts...), l
}

func storedState(t *testing.T, l *ledger.MemoryLedger, importer string, n int64) State {
	t.Helper()
	key, err := MakeKey(importer, n)
	require.NoError(t, err)
	raw, ok := l.Raw(key)
	require.True(t, ok)
	p, err := Deserialize(raw, Class)
	require.NoError(t, err)
	return p.State()
}

func TestContract_EndToEnd(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	c, l := setupContract(t, WithPublisher(pub))

	submitted, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)
	assert.Equal(t, StateInvoiced, submitted.State())

	matched, err := c.Match(ctx, "ACME", 1, "DigiBank", "22 Harbour Rd")
	require.NoError(t, err)
	assert.Equal(t, StateMatched, matched.State())
	assert.Equal(t, "22 Harbour Rd", matched.ExporterAddress())

	confirmed, err := c.Confirm(ctx, "ACME", 1)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, confirmed.State())

	finished, err := c.Finish(ctx, "ACME", 1)
	require.NoError(t, err)
	assert.Equal(t, StateFinished, finished.State())

	_, err = c.Cancel(ctx, "ACME", 1)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateFinished, storedState(t, l, "ACME", 1))

	queried, err := c.Query(ctx, "ACME", 1)
	require.NoError(t, err)
	assert.Equal(t, StateFinished, queried.State())
	assert.Equal(t, "22 Harbour Rd", queried.ExporterAddress())
	assert.Equal(t, "blue widget", queried.Product())

	require.Len(t, pub.events, 4)
	wantActions := []Action{ActionSubmit, ActionMatch, ActionConfirm, ActionFinish}
	wantStates := []State{StateInvoiced, StateMatched, StateConfirmed, StateFinished}
	for i, e := range pub.events {
		assert.Equal(t, wantActions[i], e.Action)
		assert.Equal(t, wantStates[i], e.State)
		assert.Equal(t, "ACME", e.Importer)
		assert.Equal(t, int64(1), e.PaperNumber)
		assert.Equal(t, submitted.Key(), e.Key)
		assert.NotEmpty(t, e.TxID)
	}
}

func TestContract_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate identity is rejected", func(t *testing.T) {
		c, l := setupContract(t)
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)

		again := sampleSubmission()
		again.Product = "something else"
		_, err = c.Submit(ctx, again)
		assert.ErrorIs(t, err, ledger.ErrDuplicateKey)
		assert.Equal(t, 1, l.Len())
	})

	t.Run("invalid submission is rejected before touching the ledger", func(t *testing.T) {
		c, l := setupContract(t)
		s := sampleSubmission()
		s.PaperNumber = 0
		_, err := c.Submit(ctx, s)
		assert.ErrorIs(t, err, ErrInvalidPaper)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("identity that is not UTF-8 is rejected", func(t *testing.T) {
		c, l := setupContract(t)
		s := sampleSubmission()
		s.Importer = "ACME\xff"
		_, err := c.Submit(ctx, s)
		assert.ErrorIs(t, err, ErrInvalidPaper)
		assert.Equal(t, 0, l.Len())

		_, err = c.Query(ctx, "ACME\xff", 1)
		assert.ErrorIs(t, err, ledger.ErrInvalidKey)
	})

	t.Run("same number for different importers are distinct papers", func(t *testing.T) {
		c, l := setupContract(t)
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)
		other := sampleSubmission()
		other.Importer = "Globex"
		_, err = c.Submit(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, 2, l.Len())
	})
}

func TestContract_Match(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong exporter is denied and state unchanged", func(t *testing.T) {
		pub := &recordingPublisher{}
		c, l := setupContract(t, WithPublisher(pub))
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)

		_, err = c.Match(WithCaller(ctx, "MagnetoCorp"), "ACME", 1, "MagnetoCorp", "somewhere")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		var pde *PermissionDeniedError
		require.True(t, errors.As(err, &pde))
		assert.Equal(t, "MagnetoCorp", pde.Caller)
		assert.Equal(t, ActionMatch, pde.Action)

		assert.Equal(t, StateInvoiced, storedState(t, l, "ACME", 1))
		assert.Len(t, pub.events, 1, "only the submit event should be published")
	})

	t.Run("state is checked before the exporter", func(t *testing.T) {
		c, _ := setupContract(t)
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)
		_, err = c.Match(ctx, "ACME", 1, "DigiBank", "")
		require.NoError(t, err)

		_, err = c.Match(ctx, "ACME", 1, "Nobody", "")
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("missing paper", func(t *testing.T) {
		c, _ := setupContract(t)
		_, err := c.Match(ctx, "ACME", 99, "DigiBank", "")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("exporter address that is not UTF-8 leaves the paper invoiced", func(t *testing.T) {
		c, l := setupContract(t)
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)

		_, err = c.Match(ctx, "ACME", 1, "DigiBank", "Dock\xff")
		assert.ErrorIs(t, err, ErrInvalidPaper)
		assert.Equal(t, StateInvoiced, storedState(t, l, "ACME", 1))

		_, err = c.Match(ctx, "ACME", 1, "DigiBank", "Dock 9")
		require.NoError(t, err)
	})
}

func TestContract_EntryUnderWrongKey(t *testing.T) {
	ctx := context.Background()
	c, l := setupContract(t)
	_, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)

	key1, err := MakeKey("ACME", 1)
	require.NoError(t, err)
	key2, err := MakeKey("ACME", 2)
	require.NoError(t, err)
	raw, ok := l.Raw(key1)
	require.True(t, ok)
	l.SetRaw(key2, raw)

	_, err = c.Query(ctx, "ACME", 2)
	assert.ErrorIs(t, err, ledger.ErrDeserialization)

	_, err = c.Cancel(ctx, "ACME", 2)
	assert.ErrorIs(t, err, ledger.ErrDeserialization)
	assert.Equal(t, StateInvoiced, storedState(t, l, "ACME", 1))
}

func TestContract_IllegalTransitionsLeaveLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	c, l := setupContract(t)
	_, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)

	ops := map[string]func() error{
		"confirm": func() error { _, err := c.Confirm(ctx, "ACME", 1); return err },
		"clear":   func() error { _, err := c.Clear(ctx, "ACME", 1); return err },
		"finish":  func() error { _, err := c.Finish(ctx, "ACME", 1); return err },
	}
	for name, op := range ops {
		t.Run(name+" from INVOICED", func(t *testing.T) {
			before, _ := l.Raw(mustKey(t, "ACME", 1))
			err := op()
			assert.ErrorIs(t, err, ErrIllegalTransition)
			after, _ := l.Raw(mustKey(t, "ACME", 1))
			assert.Equal(t, before, after)
		})
	}
}

func TestContract_ClearThenCancel(t *testing.T) {
	ctx := context.Background()
	c, l := setupContract(t)
	_, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)
	_, err = c.Match(ctx, "ACME", 1, "DigiBank", "")
	require.NoError(t, err)
	_, err = c.Confirm(ctx, "ACME", 1)
	require.NoError(t, err)

	cleared, err := c.Clear(ctx, "ACME", 1)
	require.NoError(t, err)
	assert.True(t, cleared.IsCleared())

	_, err = c.Finish(ctx, "ACME", 1)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	canceled, err := c.Cancel(ctx, "ACME", 1)
	require.NoError(t, err)
	assert.True(t, canceled.IsCanceled())

	// re-cancel is idempotent
	_, err = c.Cancel(ctx, "ACME", 1)
	require.NoError(t, err)
	assert.Equal(t, StateCanceled, storedState(t, l, "ACME", 1))
}

func TestContract_Policy(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel restricted to DigiBank papers", func(t *testing.T) {
		c, l := setupContract(t, WithPolicy(Policy{
			ActionCancel: {Exporters: []string{"DigiBank"}},
		}))
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)
		other := sampleSubmission()
		other.PaperNumber = 2
		other.Exporter = "MagnetoCorp"
		_, err = c.Submit(ctx, other)
		require.NoError(t, err)

		_, err = c.Cancel(ctx, "ACME", 2)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, StateInvoiced, storedState(t, l, "ACME", 2))

		_, err = c.Cancel(ctx, "ACME", 1)
		require.NoError(t, err)
	})

	t.Run("confirm restricted to the importer principal", func(t *testing.T) {
		c, l := setupContract(t, WithPolicy(Policy{
			ActionConfirm: {Principals: []string{"ACME"}},
		}))
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)
		_, err = c.Match(ctx, "ACME", 1, "DigiBank", "")
		require.NoError(t, err)

		_, err = c.Confirm(WithCaller(ctx, "DigiBank"), "ACME", 1)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		_, err = c.Confirm(ctx, "ACME", 1)
		assert.ErrorIs(t, err, ErrPermissionDenied, "anonymous caller is denied")
		assert.Equal(t, StateMatched, storedState(t, l, "ACME", 1))

		_, err = c.Confirm(WithCaller(ctx, "ACME"), "ACME", 1)
		require.NoError(t, err)
	})

	t.Run("state failure wins over authorization failure", func(t *testing.T) {
		c, _ := setupContract(t, WithPolicy(Policy{
			ActionFinish: {Principals: []string{"nobody"}},
		}))
		_, err := c.Submit(ctx, sampleSubmission())
		require.NoError(t, err)

		_, err = c.Finish(ctx, "ACME", 1)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("submit rule", func(t *testing.T) {
		c, l := setupContract(t, WithPolicy(Policy{
			ActionSubmit: {Principals: []string{"ACME"}},
		}))
		_, err := c.Submit(WithCaller(ctx, "Globex"), sampleSubmission())
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, 0, l.Len())
	})
}

func TestContract_QueryDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	c, l := setupContract(t, WithPublisher(pub))
	_, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)

	before, _ := l.Raw(mustKey(t, "ACME", 1))
	for i := 0; i < 3; i++ {
		_, err := c.Query(ctx, "ACME", 1)
		require.NoError(t, err)
	}
	after, _ := l.Raw(mustKey(t, "ACME", 1))
	assert.Equal(t, before, after)
	assert.Len(t, pub.events, 1)

	_, err = c.Query(ctx, "ACME", 2)
	assert.True(t, ledger.IsNotFound(err))
}

func TestContract_List(t *testing.T) {
	ctx := context.Background()
	c, _ := setupContract(t)

	for _, s := range []struct {
		importer string
		n        int64
	}{{"ACME", 2}, {"ACME", 1}, {"Globex", 1}, {"ACMEX", 1}} {
		sub := sampleSubmission()
		sub.Importer = s.importer
		sub.PaperNumber = s.n
		_, err := c.Submit(ctx, sub)
		require.NoError(t, err)
	}

	acme, err := c.List(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, acme, 2)
	assert.Equal(t, int64(1), acme[0].PaperNumber())
	assert.Equal(t, int64(2), acme[1].PaperNumber())

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestContract_PublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	c, l := setupContract(t, WithPublisher(pub))

	_, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestContract_ConcurrentTransitionsOnOnePaper(t *testing.T) {
	ctx := context.Background()
	c, l := setupContract(t)
	_, err := c.Submit(ctx, sampleSubmission())
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Match(ctx, "ACME", 1, "DigiBank", "dock"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "exactly one match should win")
	assert.Equal(t, StateMatched, storedState(t, l, "ACME", 1))
}

func mustKey(t *testing.T, importer string, n int64) string {
	t.Helper()
	key, err := MakeKey(importer, n)
	require.NoError(t, err)
	return key
}
