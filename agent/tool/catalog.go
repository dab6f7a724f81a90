// Package tool implements the fixed set of named, schema-typed capabilities
// the dispatcher can invoke. Tools read the document catalog but never touch
// session state; all mutation flows back through the orchestrator.
package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

const (
	ToolDocumentLookup = "document_lookup"
	ToolCalculator     = "calculator"
	ToolSummarizer     = "summarizer"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// NewExecutor builds the dispatch-table executor over the closed tool set.
// Unknown tool names produce a failed result, never a panic or a lookup by
// reflection.
func NewExecutor(catalog contractx.DocumentCatalog, composer contractx.Composer) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolDocumentLookup:
			return executeLookup(ctx, catalog, args)
		case ToolCalculator:
			return executeCalculator(args)
		case ToolSummarizer:
			return executeSummarizer(ctx, catalog, composer, args)
		default:
			return contractx.ToolResult{
				Tool:  tool,
				Error: fmt.Sprintf("tool=%s is not registered", tool),
			}, nil
		}
	}
}

// Infos describes the tool schemas for model-facing surfaces.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolDocumentLookup,
			Desc: "Fetch one document's content and metadata by its identifier.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"document_id": {Type: schema.String, Desc: "Document identifier, e.g. INV-001", Required: true},
			}),
		},
		{
			Name: ToolCalculator,
			Desc: "Evaluate an arithmetic expression with exact decimal precision.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
			}),
		},
		{
			Name: ToolSummarizer,
			Desc: "Summarize one or more documents by identifier.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"document_ids": {
					Type:     schema.Array,
					Desc:     "Identifiers of the documents to summarize",
					Required: true,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
	}
}
