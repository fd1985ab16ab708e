package paper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dyluth/papernet/pkg/ledger"
)

// Class is the namespace every import paper is stored under.
const Class = "org.papernet.importPaper"

// Serialization helpers for converting between ImportPaper and its ledger form
//
// A stored paper is one flat JSON object. The class discriminant and the
// derived key travel with the record so a reader can check both.

type paperRecord struct {
	Class           string  `json:"class"`
	Key             string  `json:"key"`
	CurrentState    State   `json:"currentState"`
	Importer        string  `json:"importer"`
	Exporter        string  `json:"exporter"`
	PaperNumber     int64   `json:"paperNumber"`
	SubmitDateTime  string  `json:"submitDateTime"`
	ImporterAddress string  `json:"importerAddress"`
	ProductCategory string  `json:"productCategory"`
	Product         string  `json:"product"`
	Quantity        int64   `json:"quantity"`
	ProductValue    float64 `json:"productValue"`
	ExporterAddress string  `json:"exporterAddress"`
}

// incomingRecord mirrors paperRecord with pointers on required fields so that
// missing fields can be told apart from zero values.
type incomingRecord struct {
	Class           *string `json:"class"`
	Key             *string `json:"key"`
	CurrentState    *State  `json:"currentState"`
	Importer        *string `json:"importer"`
	Exporter        *string `json:"exporter"`
	PaperNumber     *int64  `json:"paperNumber"`
	SubmitDateTime  string  `json:"submitDateTime"`
	ImporterAddress string  `json:"importerAddress"`
	ProductCategory string  `json:"productCategory"`
	Product         string  `json:"product"`
	Quantity        int64   `json:"quantity"`
	ProductValue    float64 `json:"productValue"`
	ExporterAddress string  `json:"exporterAddress"`
}

func (p *ImportPaper) record() paperRecord {
	return paperRecord{
		Class:           Class,
		Key:             p.Key(),
		CurrentState:    p.state,
		Importer:        p.importer,
		Exporter:        p.exporter,
		PaperNumber:     p.paperNumber,
		SubmitDateTime:  p.submitDateTime,
		ImporterAddress: p.importerAddress,
		ProductCategory: p.productCategory,
		Product:         p.product,
		Quantity:        p.quantity,
		ProductValue:    p.productValue,
		ExporterAddress: p.exporterAddress,
	}
}

// Serialize encodes the paper for storage.
func (p *ImportPaper) Serialize() ([]byte, error) {
	data, err := json.Marshal(p.record())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal paper: %w", err)
	}
	return data, nil
}

// MarshalJSON renders the paper in its stored form.
func (p *ImportPaper) MarshalJSON() ([]byte, error) {
	return p.Serialize()
}

// Deserialize rebuilds a paper from its stored form. Every failure is a
// *ledger.DeserializationError: malformed JSON, wrong field types, unknown
// or missing required fields, a class other than class, an unknown state,
// invalid identity, or a stored key that disagrees with the identity.
func Deserialize(data []byte, class string) (*ImportPaper, error) {
	fail := func(reason string, err error) (*ImportPaper, error) {
		return nil, &ledger.DeserializationError{Class: class, Reason: reason, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var in incomingRecord
	if err := dec.Decode(&in); err != nil {
		return fail("malformed payload", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fail("trailing data after payload", nil)
	}

	switch {
	case in.Class == nil:
		return fail("missing field class", nil)
	case in.Importer == nil:
		return fail("missing field importer", nil)
	case in.PaperNumber == nil:
		return fail("missing field paperNumber", nil)
	case in.Exporter == nil:
		return fail("missing field exporter", nil)
	case in.CurrentState == nil:
		return fail("missing field currentState", nil)
	}

	if *in.Class != class {
		return fail(fmt.Sprintf("class mismatch: record is %q", *in.Class), nil)
	}
	if err := in.CurrentState.Validate(); err != nil {
		return fail("unknown state", err)
	}

	p, err := NewImportPaper(Submission{
		Importer:        *in.Importer,
		PaperNumber:     *in.PaperNumber,
		Exporter:        *in.Exporter,
		SubmitDateTime:  in.SubmitDateTime,
		ImporterAddress: in.ImporterAddress,
		ProductCategory: in.ProductCategory,
		Product:         in.Product,
		Quantity:        in.Quantity,
		ProductValue:    in.ProductValue,
	})
	if err != nil {
		return fail("invalid field values", err)
	}
	p.state = *in.CurrentState
	p.exporterAddress = in.ExporterAddress

	if in.Key != nil && *in.Key != p.Key() {
		return fail(fmt.Sprintf("stored key %q does not match identity %q",
			ledger.FormatKey(*in.Key), ledger.FormatKey(p.Key())), nil)
	}

	return p, nil
}
