package paper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/papernet/internal/testutil"
	"github.com/dyluth/papernet/pkg/ledger"
	"github.com/dyluth/papernet/pkg/paper"
)

// Every backend must give the contract the same observable behavior.
func TestContract_AllBackends(t *testing.T) {
	ctx := context.Background()

	for _, backend := range testutil.AllBackends(t) {
		t.Run(backend.Name, func(t *testing.T) {
			c := paper.NewContract(backend.Ledger)

			for _, n := range []int64{10, 2, 1} {
				_, err := c.Submit(ctx, paper.Submission{Importer: "ACME", PaperNumber: n, Exporter: "DigiBank"})
				require.NoError(t, err)
			}
			_, err := c.Submit(ctx, paper.Submission{Importer: "ACMEX", PaperNumber: 1, Exporter: "DigiBank"})
			require.NoError(t, err)

			_, err = c.Submit(ctx, paper.Submission{Importer: "ACME", PaperNumber: 1, Exporter: "Other"})
			assert.ErrorIs(t, err, ledger.ErrDuplicateKey)

			_, err = c.Match(ctx, "ACME", 1, "DigiBank", "9 Dock Rd")
			require.NoError(t, err)
			_, err = c.Confirm(ctx, "ACME", 1)
			require.NoError(t, err)

			_, err = c.Match(ctx, "ACME", 1, "DigiBank", "")
			assert.ErrorIs(t, err, paper.ErrIllegalTransition)

			p, err := c.Finish(ctx, "ACME", 1)
			require.NoError(t, err)
			assert.Equal(t, paper.StateFinished, p.State())

			stored, err := c.Query(ctx, "ACME", 1)
			require.NoError(t, err)
			assert.Equal(t, paper.StateFinished, stored.State())
			assert.Equal(t, "9 Dock Rd", stored.ExporterAddress())

			_, err = c.Query(ctx, "ACME", 99)
			assert.ErrorIs(t, err, ledger.ErrNotFound)

			// Key order, and no leakage between importers sharing a prefix.
			papers, err := c.List(ctx, "ACME")
			require.NoError(t, err)
			var numbers []int64
			for _, p := range papers {
				numbers = append(numbers, p.PaperNumber())
			}
			assert.Equal(t, []int64{1, 10, 2}, numbers)

			all, err := c.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}
