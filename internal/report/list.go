package report

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/papernet/internal/filter"
	"github.com/dyluth/papernet/pkg/paper"
)

// Lister is the part of paper.Contract the report needs.
type Lister interface {
	List(ctx context.Context, importer string) ([]*paper.ImportPaper, error)
}

// ListPapers lists the papers of importer (every importer when empty), keeps
// those matching criteria and writes them in format. Papers come back in key
// order, so output is stable across backends.
func ListPapers(ctx context.Context, l Lister, importer string, criteria *filter.Criteria, format OutputFormat, w io.Writer) error {
	papers, err := l.List(ctx, importer)
	if err != nil {
		return fmt.Errorf("failed to list papers: %w", err)
	}

	if criteria != nil {
		papers = criteria.Apply(papers)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, papers, scope(importer))
	case OutputFormatJSONL:
		if err := FormatJSONL(w, papers); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

func scope(importer string) string {
	if importer == "" {
		return "all importers"
	}
	return fmt.Sprintf("importer '%s'", importer)
}
