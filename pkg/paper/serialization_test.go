package paper

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/papernet/pkg/ledger"
)

func TestSerializeRoundTrip(t *testing.T) {
	p := mustPaper(t)
	require.NoError(t, p.match("22 Harbour Rd"))
	require.NoError(t, p.Apply(ActionConfirm))

	data, err := p.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(data, Class)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, p.Key(), got.Key())
}

func TestSerializeRoundTrip_Unicode(t *testing.T) {
	s := sampleSubmission()
	s.Importer = "Société Générale"
	s.Product = "茶叶"
	p, err := NewImportPaper(s)
	require.NoError(t, err)
	require.NoError(t, p.match("Straße 5"))

	data, err := p.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(data, Class)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, p.Key(), got.Key())
}

func TestMatch_RejectsInvalidUTF8Address(t *testing.T) {
	p := mustPaper(t)
	err := p.match("Dock\xff")
	assert.ErrorIs(t, err, ErrInvalidPaper)
	assert.Equal(t, StateInvoiced, p.State())
	assert.Empty(t, p.ExporterAddress())
}

func TestSerialize_Fields(t *testing.T) {
	p := mustPaper(t)
	data, err := p.Serialize()
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Equal(t, Class, fields["class"])
	assert.Equal(t, p.Key(), fields["key"])
	assert.Equal(t, "INVOICED", fields["currentState"])
	assert.Equal(t, "ACME", fields["importer"])
	assert.Equal(t, float64(1), fields["paperNumber"])
	for _, name := range []string{
		"exporter", "submitDateTime", "importerAddress", "productCategory",
		"product", "quantity", "productValue", "exporterAddress",
	} {
		assert.Contains(t, fields, name)
	}
}

func TestDeserialize_Rejects(t *testing.T) {
	p := mustPaper(t)
	valid, err := p.Serialize()
	require.NoError(t, err)

	edit := func(mutate func(m map[string]interface{})) []byte {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(valid, &m))
		mutate(m)
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return out
	}

	tests := []struct {
		name  string
		data  []byte
		class string
	}{
		{"class mismatch", valid, "org.papernet.otherPaper"},
		{"malformed json", []byte(`{"class":`), Class},
		{"not an object", []byte(`[1,2,3]`), Class},
		{"trailing data", append(append([]byte{}, valid...), []byte(` {}`)...), Class},
		{"missing class", edit(func(m map[string]interface{}) { delete(m, "class") }), Class},
		{"missing importer", edit(func(m map[string]interface{}) { delete(m, "importer") }), Class},
		{"missing paperNumber", edit(func(m map[string]interface{}) { delete(m, "paperNumber") }), Class},
		{"missing exporter", edit(func(m map[string]interface{}) { delete(m, "exporter") }), Class},
		{"missing currentState", edit(func(m map[string]interface{}) { delete(m, "currentState") }), Class},
		{"wrong type paperNumber", edit(func(m map[string]interface{}) { m["paperNumber"] = "one" }), Class},
		{"wrong type quantity", edit(func(m map[string]interface{}) { m["quantity"] = true }), Class},
		{"unknown field", edit(func(m map[string]interface{}) { m["owner"] = "MagnetoCorp" }), Class},
		{"unknown state", edit(func(m map[string]interface{}) { m["currentState"] = "PAID" }), Class},
		{"invalid identity", edit(func(m map[string]interface{}) { m["paperNumber"] = 0 }), Class},
		{"negative quantity", edit(func(m map[string]interface{}) { m["quantity"] = -3 }), Class},
		{"key disagrees with identity", edit(func(m map[string]interface{}) { m["paperNumber"] = 2 }), Class},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Deserialize(tc.data, tc.class)
			require.Error(t, err)
			assert.Nil(t, got)

			var de *ledger.DeserializationError
			require.True(t, errors.As(err, &de), "expected DeserializationError, got %T: %v", err, err)
			assert.Equal(t, tc.class, de.Class)
			assert.ErrorIs(t, err, ledger.ErrDeserialization)
		})
	}
}

func TestDeserialize_KeyOptional(t *testing.T) {
	data := []byte(`{"class":"org.papernet.importPaper","importer":"ACME","paperNumber":7,` +
		`"exporter":"DigiBank","currentState":"MATCHED","exporterAddress":"Dock 4"}`)

	p, err := Deserialize(data, Class)
	require.NoError(t, err)
	assert.Equal(t, StateMatched, p.State())
	assert.Equal(t, "Dock 4", p.ExporterAddress())
	assert.Equal(t, int64(7), p.PaperNumber())
}

func TestMarshalJSON(t *testing.T) {
	p := mustPaper(t)
	viaJSON, err := json.Marshal(p)
	require.NoError(t, err)
	direct, err := p.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, string(direct), string(viaJSON))
}
