package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

type LookupOutput struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func executeLookup(ctx context.Context, catalog contractx.DocumentCatalog, args map[string]any) (contractx.ToolResult, error) {
	rawID, ok := args["document_id"]
	if !ok {
		return contractx.ToolResult{
			Tool:  ToolDocumentLookup,
			Error: "document_id is required",
		}, nil
	}
	id, ok := rawID.(string)
	if !ok || strings.TrimSpace(id) == "" {
		return contractx.ToolResult{
			Tool:  ToolDocumentLookup,
			Error: "document_id must be a non-empty string",
		}, nil
	}
	id = strings.TrimSpace(id)

	doc, err := catalog.Lookup(ctx, id)
	if errors.Is(err, contractx.ErrDocumentNotFound) {
		return contractx.ToolResult{
			Tool:     ToolDocumentLookup,
			Error:    fmt.Sprintf("document not found: %s", id),
			NotFound: true,
		}, nil
	}
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("catalog lookup: %w", err)
	}

	return contractx.ToolResult{
		Tool: ToolDocumentLookup,
		Result: LookupOutput{
			ID:       doc.ID,
			Title:    doc.Title,
			Type:     doc.Type,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		},
	}, nil
}
