package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

const extractRuneLimit = 240

type SummarizeOutput struct {
	DocumentIDs []string `json:"document_ids"`
	Summary     string   `json:"summary"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// executeSummarizer reads the requested documents and produces a summary via
// the composer model. A model failure degrades to a deterministic extract so
// the tool still succeeds with grounded output.
func executeSummarizer(ctx context.Context, catalog contractx.DocumentCatalog, composer contractx.Composer, args map[string]any) (contractx.ToolResult, error) {
	ids := stringSlice(args["document_ids"])
	if len(ids) == 0 {
		return contractx.ToolResult{
			Tool:  ToolSummarizer,
			Error: "document_ids is required",
		}, nil
	}

	docs := make([]contractx.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := catalog.Lookup(ctx, id)
		if errors.Is(err, contractx.ErrDocumentNotFound) {
			return contractx.ToolResult{
				Tool:     ToolSummarizer,
				Error:    fmt.Sprintf("document not found: %s", id),
				NotFound: true,
			}, nil
		}
		if err != nil {
			return contractx.ToolResult{}, fmt.Errorf("catalog lookup: %w", err)
		}
		docs = append(docs, doc)
	}

	summary, err := composer.Compose(ctx, contractx.ComposeRequest{
		Intent:      contractx.IntentSummarization,
		UserMessage: fmt.Sprintf("Summarize documents: %s", strings.Join(ids, ", ")),
		Documents:   docs,
	})
	if err == nil && strings.TrimSpace(summary) != "" {
		return contractx.ToolResult{
			Tool: ToolSummarizer,
			Result: SummarizeOutput{
				DocumentIDs: ids,
				Summary:     strings.TrimSpace(summary),
			},
		}, nil
	}

	return contractx.ToolResult{
		Tool: ToolSummarizer,
		Result: SummarizeOutput{
			DocumentIDs: ids,
			Summary:     extractiveSummary(docs),
			Fallback:    true,
		},
	}, nil
}

// extractiveSummary is the deterministic degradation path: title, type,
// metadata highlights, and the head of each document's content.
func extractiveSummary(docs []contractx.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s (%s): %s", doc.ID, doc.Type, doc.Title)
		if len(doc.Metadata) > 0 {
			keys := make([]string, 0, len(doc.Metadata))
			for k := range doc.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, k+"="+doc.Metadata[k])
			}
			fmt.Fprintf(&b, " [%s]", strings.Join(pairs, ", "))
		}
		content := strings.TrimSpace(doc.Content)
		if runes := []rune(content); len(runes) > extractRuneLimit {
			content = string(runes[:extractRuneLimit]) + "..."
		}
		if content != "" {
			b.WriteString("\n")
			b.WriteString(content)
		}
	}
	return b.String()
}

func stringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}
