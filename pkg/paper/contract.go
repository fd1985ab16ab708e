package paper

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/papernet/pkg/ledger"
)

// Event is emitted after a paper operation commits.
type Event struct {
	Action      Action `json:"action"`
	Key         string `json:"key"`
	Importer    string `json:"importer"`
	PaperNumber int64  `json:"paperNumber"`
	State       State  `json:"state"`
	TxID        string `json:"txId"`
}

// Publisher delivers committed events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Contract exposes the paper lifecycle operations over a ledger.
// Each operation runs in its own ledger transaction and follows the same
// order: load, check the state, check authorization, mutate, persist.
// A failed check leaves the ledger untouched.
type Contract struct {
	ledger    ledger.Ledger
	policy    Policy
	publisher Publisher
}

// Option configures a Contract.
type Option func(*Contract)

// WithPolicy sets the authorization policy. The default permits everything.
func WithPolicy(p Policy) Option {
	return func(c *Contract) {
		c.policy = p
	}
}

// WithPublisher sets where committed events are published.
func WithPublisher(p Publisher) Option {
	return func(c *Contract) {
		c.publisher = p
	}
}

// NewContract creates a contract over l.
func NewContract(l ledger.Ledger, opts ...Option) *Contract {
	c := &Contract{
		ledger: l,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCollection returns the paper collection view over kv.
func NewCollection(kv ledger.KV) *ledger.Collection[*ImportPaper] {
	return ledger.NewCollection(kv, Class, Deserialize)
}

// Submit creates a new INVOICED paper.
func (c *Contract) Submit(ctx context.Context, s Submission) (*ImportPaper, error) {
	p, err := NewImportPaper(s)
	if err != nil {
		return nil, err
	}

	var txID string
	err = c.ledger.Transact(ctx, func(tx ledger.Tx) error {
		if err := c.policy.Authorize(CallerFrom(ctx), ActionSubmit, p); err != nil {
			return err
		}
		txID = tx.TxID()
		return NewCollection(tx).Add(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	c.committed(ctx, ActionSubmit, p, txID)
	return p, nil
}

// Match moves an INVOICED paper to MATCHED. The asserted exporter must be the
// paper's exporter.
func (c *Contract) Match(ctx context.Context, importer string, paperNumber int64, exporter, exporterAddress string) (*ImportPaper, error) {
	checkExporter := func(p *ImportPaper) error {
		if exporter != p.exporter {
			return &PermissionDeniedError{
				Caller: CallerFrom(ctx),
				Key:    p.Key(),
				Action: ActionMatch,
				Reason: fmt.Sprintf("asserted exporter %q is not the paper's exporter %q", exporter, p.exporter),
			}
		}
		return nil
	}
	return c.transition(ctx, importer, paperNumber, ActionMatch, checkExporter, func(p *ImportPaper) error {
		return p.match(exporterAddress)
	})
}

// Confirm moves a MATCHED paper to CONFIRMED.
func (c *Contract) Confirm(ctx context.Context, importer string, paperNumber int64) (*ImportPaper, error) {
	return c.apply(ctx, importer, paperNumber, ActionConfirm)
}

// Clear moves a CONFIRMED paper to CLEARED.
func (c *Contract) Clear(ctx context.Context, importer string, paperNumber int64) (*ImportPaper, error) {
	return c.apply(ctx, importer, paperNumber, ActionClear)
}

// Cancel moves any paper that is not FINISHED to CANCELED.
func (c *Contract) Cancel(ctx context.Context, importer string, paperNumber int64) (*ImportPaper, error) {
	return c.apply(ctx, importer, paperNumber, ActionCancel)
}

// Finish moves a CONFIRMED paper to FINISHED.
func (c *Contract) Finish(ctx context.Context, importer string, paperNumber int64) (*ImportPaper, error) {
	return c.apply(ctx, importer, paperNumber, ActionFinish)
}

// Query returns the stored paper without modifying it.
func (c *Contract) Query(ctx context.Context, importer string, paperNumber int64) (*ImportPaper, error) {
	key, err := MakeKey(importer, paperNumber)
	if err != nil {
		return nil, err
	}

	var p *ImportPaper
	err = c.ledger.Transact(ctx, func(tx ledger.Tx) error {
		var err error
		p, err = NewCollection(tx).Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the papers of importer ordered by key, or every paper when
// importer is empty. The ledger must support range scans.
func (c *Contract) List(ctx context.Context, importer string) ([]*ImportPaper, error) {
	var parts []string
	if importer != "" {
		parts = append(parts, importer)
	}

	var papers []*ImportPaper
	err := c.ledger.Transact(ctx, func(tx ledger.Tx) error {
		var err error
		papers, err = NewCollection(tx).List(ctx, parts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return papers, nil
}

func (c *Contract) apply(ctx context.Context, importer string, paperNumber int64, action Action) (*ImportPaper, error) {
	return c.transition(ctx, importer, paperNumber, action, nil, func(p *ImportPaper) error {
		return p.Apply(action)
	})
}

// transition runs one state change inside a transaction. check runs after the
// state and policy checks and may add action-specific authorization.
func (c *Contract) transition(
	ctx context.Context,
	importer string,
	paperNumber int64,
	action Action,
	check func(p *ImportPaper) error,
	mutate func(p *ImportPaper) error,
) (*ImportPaper, error) {
	key, err := MakeKey(importer, paperNumber)
	if err != nil {
		return nil, err
	}

	var (
		result *ImportPaper
		txID   string
	)
	err = c.ledger.Transact(ctx, func(tx ledger.Tx) error {
		papers := NewCollection(tx)

		p, err := papers.Get(ctx, key)
		if err != nil {
			return err
		}
		if _, err := p.Next(action); err != nil {
			return err
		}
		if err := c.policy.Authorize(CallerFrom(ctx), action, p); err != nil {
			return err
		}
		if check != nil {
			if err := check(p); err != nil {
				return err
			}
		}
		if err := mutate(p); err != nil {
			return err
		}
		if err := papers.Update(ctx, p); err != nil {
			return err
		}

		result = p
		txID = tx.TxID()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.committed(ctx, action, result, txID)
	return result, nil
}

// committed logs the operation and publishes its event. Publishing errors are
// logged only; the ledger change has already been committed.
func (c *Contract) committed(ctx context.Context, action Action, p *ImportPaper, txID string) {
	log.Printf("[INFO] Paper %s:%d %s by '%s', now %s (tx %s)",
		p.importer, p.paperNumber, pastTense(action), CallerFrom(ctx), p.state, txID)

	if c.publisher == nil {
		return
	}

	event := Event{
		Action:      action,
		Key:         p.Key(),
		Importer:    p.importer,
		PaperNumber: p.paperNumber,
		State:       p.state,
		TxID:        txID,
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish %s event for paper %s:%d: %v", action, p.importer, p.paperNumber, err)
	}
}

func pastTense(a Action) string {
	switch a {
	case ActionSubmit:
		return "submitted"
	case ActionMatch:
		return "matched"
	case ActionConfirm:
		return "confirmed"
	case ActionClear:
		return "cleared"
	case ActionCancel:
		return "canceled"
	case ActionFinish:
		return "finished"
	default:
		return string(a)
	}
}
