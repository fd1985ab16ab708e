package paper

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/dyluth/papernet/pkg/ledger"
)

// Submission carries every field a new paper is created with.
type Submission struct {
	Importer        string
	PaperNumber     int64
	Exporter        string
	SubmitDateTime  string
	ImporterAddress string
	ProductCategory string
	Product         string
	Quantity        int64
	ProductValue    float64
}

// ImportPaper is an import/export document tracked on the ledger.
// Identity (importer, paper number) and descriptive fields never change after
// creation. The state moves only through Apply.
type ImportPaper struct {
	importer        string
	paperNumber     int64
	exporter        string
	submitDateTime  string
	importerAddress string
	productCategory string
	product         string
	quantity        int64
	productValue    float64
	exporterAddress string
	state           State
}

var _ ledger.Entity = (*ImportPaper)(nil)

// NewImportPaper creates an INVOICED paper from s.
func NewImportPaper(s Submission) (*ImportPaper, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &ImportPaper{
		importer:        s.Importer,
		paperNumber:     s.PaperNumber,
		exporter:        s.Exporter,
		submitDateTime:  s.SubmitDateTime,
		importerAddress: s.ImporterAddress,
		productCategory: s.ProductCategory,
		product:         s.Product,
		quantity:        s.Quantity,
		productValue:    s.ProductValue,
		state:           StateInvoiced,
	}, nil
}

// Validate checks the submission against the paper invariants.
func (s Submission) Validate() error {
	if err := ledger.ValidateComponent(s.Importer); err != nil {
		return fmt.Errorf("%w: importer: %v", ErrInvalidPaper, err)
	}
	if s.PaperNumber <= 0 {
		return fmt.Errorf("%w: paper number must be positive, got %d", ErrInvalidPaper, s.PaperNumber)
	}
	if err := ledger.ValidateComponent(s.Exporter); err != nil {
		return fmt.Errorf("%w: exporter: %v", ErrInvalidPaper, err)
	}
	for name, v := range map[string]string{
		"submitDateTime":  s.SubmitDateTime,
		"importerAddress": s.ImporterAddress,
		"productCategory": s.ProductCategory,
		"product":         s.Product,
	} {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidPaper, name)
		}
	}
	if s.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative, got %d", ErrInvalidPaper, s.Quantity)
	}
	if math.IsNaN(s.ProductValue) || math.IsInf(s.ProductValue, 0) || s.ProductValue < 0 {
		return fmt.Errorf("%w: product value must be a finite non-negative number, got %v", ErrInvalidPaper, s.ProductValue)
	}
	return nil
}

// MakeKey returns the ledger key of the paper identified by importer and
// paperNumber.
func MakeKey(importer string, paperNumber int64) (string, error) {
	if paperNumber <= 0 {
		return "", fmt.Errorf("%w: paper number must be positive, got %d", ledger.ErrInvalidKey, paperNumber)
	}
	return ledger.MakeKey(Class, importer, strconv.FormatInt(paperNumber, 10))
}

// Key returns the ledger key derived from the paper's identity.
func (p *ImportPaper) Key() string {
	// identity is validated by NewImportPaper and Deserialize
	key, _ := MakeKey(p.importer, p.paperNumber)
	return key
}

func (p *ImportPaper) Importer() string        { return p.importer }
func (p *ImportPaper) PaperNumber() int64      { return p.paperNumber }
func (p *ImportPaper) Exporter() string        { return p.exporter }
func (p *ImportPaper) SubmitDateTime() string  { return p.submitDateTime }
func (p *ImportPaper) ImporterAddress() string { return p.importerAddress }
func (p *ImportPaper) ProductCategory() string { return p.productCategory }
func (p *ImportPaper) Product() string         { return p.product }
func (p *ImportPaper) Quantity() int64         { return p.quantity }
func (p *ImportPaper) ProductValue() float64   { return p.productValue }
func (p *ImportPaper) ExporterAddress() string { return p.exporterAddress }
func (p *ImportPaper) State() State            { return p.state }

func (p *ImportPaper) IsInvoiced() bool  { return p.state == StateInvoiced }
func (p *ImportPaper) IsMatched() bool   { return p.state == StateMatched }
func (p *ImportPaper) IsConfirmed() bool { return p.state == StateConfirmed }
func (p *ImportPaper) IsCleared() bool   { return p.state == StateCleared }
func (p *ImportPaper) IsCanceled() bool  { return p.state == StateCanceled }
func (p *ImportPaper) IsFinished() bool  { return p.state == StateFinished }

// CanApply reports whether action is permitted from the current state.
func (p *ImportPaper) CanApply(action Action) bool {
	_, ok := nextState(p.state, action)
	return ok
}

// Next returns the state action would move the paper to, without changing it.
func (p *ImportPaper) Next(action Action) (State, error) {
	to, ok := nextState(p.state, action)
	if !ok {
		return "", &IllegalStateTransitionError{
			Key:     p.Key(),
			Current: p.state,
			Action:  action,
		}
	}
	return to, nil
}

// Apply moves the paper along the action edge. On error the paper is unchanged.
func (p *ImportPaper) Apply(action Action) error {
	to, err := p.Next(action)
	if err != nil {
		return err
	}
	p.state = to
	return nil
}

// match applies the match edge and records the exporter's address.
func (p *ImportPaper) match(exporterAddress string) error {
	if !utf8.ValidString(exporterAddress) {
		return fmt.Errorf("%w: exporterAddress is not valid UTF-8", ErrInvalidPaper)
	}
	if err := p.Apply(ActionMatch); err != nil {
		return err
	}
	p.exporterAddress = exporterAddress
	return nil
}

// String implements fmt.Stringer.
func (p *ImportPaper) String() string {
	return fmt.Sprintf("%s:%d (%s)", p.importer, p.paperNumber, p.state)
}
