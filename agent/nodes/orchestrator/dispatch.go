package orchestratornode

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	contractx "github.com/pattarawat/docassist/agent/contract"
	toolx "github.com/pattarawat/docassist/agent/tool"
)

// docIDPattern matches catalog identifiers such as INV-001 or CON-02.
var docIDPattern = regexp.MustCompile(`\b[A-Z]{2,4}-\d{2,4}\b`)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

var anaphorWords = map[string]bool{
	"it": true, "its": true, "that": true, "this": true, "them": true, "those": true, "same": true,
}

// DispatchTools runs the intent-specific tool plan. Every tool execution is
// recorded as an invocation before its output is consumed, so the audit trail
// and the cited sources can never drift apart.
func (n *Nodes) DispatchTools(ctx context.Context, st *GraphState) (*GraphState, error) {
	if st.SetPhase != nil {
		st.SetPhase(PhaseDispatching)
	}
	switch st.Intent {
	case contractx.IntentQA:
		return n.dispatchQA(ctx, st)
	case contractx.IntentSummarization:
		return n.dispatchSummarization(ctx, st)
	case contractx.IntentCalculation:
		return n.dispatchCalculation(ctx, st)
	default:
		return n.dispatchConversation(ctx, st)
	}
}

// invoke executes one tool, records the invocation, and returns the result.
// Transport errors abort the turn; tool-level errors are carried in the result.
// Each invocation captures its own start time so the audit trail reflects the
// real execution order within the turn.
func (n *Nodes) invoke(ctx context.Context, st *GraphState, tool string, args map[string]any) (contractx.ToolResult, error) {
	startedAt := n.now()
	res, err := n.Exec(ctx, tool, args)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("execute tool=%s: %w", tool, err)
	}

	inv := contractx.ToolInvocation{
		Tool:      tool,
		Args:      args,
		OK:        res.Error == "",
		NotFound:  res.NotFound,
		Error:     res.Error,
		StartedAt: startedAt,
	}
	if res.Result != nil {
		if raw, mErr := json.Marshal(res.Result); mErr == nil {
			inv.Output = raw
		}
	}
	st.Invocations = append(st.Invocations, inv)
	return res, nil
}

// resolveDocuments decides which documents the message is about: explicit
// identifiers win, an anaphoric reference binds to the last discussed
// document, otherwise the catalog is searched.
func (n *Nodes) resolveDocuments(ctx context.Context, st *GraphState) []string {
	if ids := docIDPattern.FindAllString(st.Text, -1); len(ids) > 0 {
		return uniqueStrings(ids)
	}

	if hasAnaphor(st.Text) {
		if id, ok := st.Session.Context.LastDocument(); ok {
			return []string{id}
		}
	}

	ids, err := n.Catalog.Search(ctx, st.Text)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.Session.ID).Msg("catalog search failed")
		return nil
	}
	return ids
}

func hasAnaphor(text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if anaphorWords[strings.Trim(w, ".,!?")] {
			return true
		}
	}
	return false
}

func (n *Nodes) dispatchQA(ctx context.Context, st *GraphState) (*GraphState, error) {
	ids := n.resolveDocuments(ctx, st)
	if len(ids) == 0 {
		st.ReplyText = "Which document would you like to ask about? You can refer to one by its identifier, for example INV-001."
		return st, nil
	}

	docs, notFound, err := n.lookupAll(ctx, st, ids)
	if err != nil {
		return nil, err
	}
	if len(notFound) > 0 {
		st.ReplyText = fmt.Sprintf("I couldn't find %s in the document catalog.", strings.Join(notFound, ", "))
		st.Recovered = true
		return st, nil
	}

	st.Sources = documentIDs(docs)
	text, err := n.Models.Composer().Compose(ctx, contractx.ComposeRequest{
		Intent:      contractx.IntentQA,
		UserMessage: st.Text,
		Summary:     st.Session.Context.Summary,
		Documents:   docs,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.Session.ID).Msg("composer failed, using document extract")
		st.ReplyText = describeDocuments(docs)
		st.ModelFallback = true
		return st, nil
	}
	st.ReplyText = text
	return st, nil
}

func (n *Nodes) dispatchSummarization(ctx context.Context, st *GraphState) (*GraphState, error) {
	ids := n.resolveDocuments(ctx, st)
	if len(ids) == 0 {
		st.ReplyText = "Which documents should I summarize? You can name them by identifier or by type, for example \"all contracts\"."
		return st, nil
	}

	res, err := n.invoke(ctx, st, toolx.ToolSummarizer, map[string]any{"document_ids": ids})
	if err != nil {
		return nil, err
	}
	if res.NotFound {
		st.ReplyText = fmt.Sprintf("I couldn't summarize those documents: %s.", res.Error)
		st.Recovered = true
		return st, nil
	}
	if res.Error != "" {
		st.ReplyText = fmt.Sprintf("I couldn't summarize those documents: %s. Could you rephrase the request?", res.Error)
		st.Recovered = true
		return st, nil
	}

	out, ok := res.Result.(toolx.SummarizeOutput)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected summarizer output %T", contractx.ErrSchemaViolation, res.Result)
	}
	st.Sources = out.DocumentIDs
	st.ReplyText = out.Summary
	st.ModelFallback = out.Fallback
	return st, nil
}

func (n *Nodes) dispatchCalculation(ctx context.Context, st *GraphState) (*GraphState, error) {
	ids := n.resolveDocuments(ctx, st)
	if len(ids) == 0 {
		return n.calculateFromText(ctx, st)
	}

	docs, notFound, err := n.lookupAll(ctx, st, ids)
	if err != nil {
		return nil, err
	}
	if len(notFound) > 0 {
		st.ReplyText = fmt.Sprintf("I couldn't find %s in the document catalog.", strings.Join(notFound, ", "))
		st.Recovered = true
		return st, nil
	}

	amounts, missing := documentAmounts(docs)
	if len(missing) > 0 {
		st.ReplyText = fmt.Sprintf("I can't calculate with %s: no amount is recorded for it.", strings.Join(missing, ", "))
		st.Recovered = true
		return st, nil
	}

	expression := buildExpression(amounts, wantsAverage(st.Text))
	res, err := n.invoke(ctx, st, toolx.ToolCalculator, map[string]any{"expression": expression})
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		st.ReplyText = fmt.Sprintf("The calculation failed: %s. Could you rephrase the request?", res.Error)
		st.Recovered = true
		return st, nil
	}
	out, ok := res.Result.(toolx.CalculatorOutput)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected calculator output %T", contractx.ErrSchemaViolation, res.Result)
	}

	st.Sources = documentIDs(docs)
	note := fmt.Sprintf("%s = %s", out.Expression, out.Result)
	text, err := n.Models.Composer().Compose(ctx, contractx.ComposeRequest{
		Intent:      contractx.IntentCalculation,
		UserMessage: st.Text,
		Summary:     st.Session.Context.Summary,
		Documents:   docs,
		ToolNotes:   []string{note},
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.Session.ID).Msg("composer failed, reporting raw result")
		st.ReplyText = fmt.Sprintf("Across %s: %s.", strings.Join(st.Sources, ", "), note)
		st.ModelFallback = true
		return st, nil
	}
	st.ReplyText = text
	return st, nil
}

// calculateFromText handles pure arithmetic requests that reference no
// document: the numbers come from the message itself and the answer cites no
// sources.
func (n *Nodes) calculateFromText(ctx context.Context, st *GraphState) (*GraphState, error) {
	nums := numberPattern.FindAllString(st.Text, -1)
	if len(nums) < 2 {
		st.ReplyText = "Which documents should the calculation cover? Name them by identifier, for example INV-001 and INV-002."
		return st, nil
	}

	amounts := make([]decimal.Decimal, 0, len(nums))
	for _, raw := range nums {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		amounts = append(amounts, amount)
	}

	expression := buildExpression(amounts, wantsAverage(st.Text))
	res, err := n.invoke(ctx, st, toolx.ToolCalculator, map[string]any{"expression": expression})
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		st.ReplyText = fmt.Sprintf("The calculation failed: %s. Could you rephrase the request?", res.Error)
		st.Recovered = true
		return st, nil
	}
	out, ok := res.Result.(toolx.CalculatorOutput)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected calculator output %T", contractx.ErrSchemaViolation, res.Result)
	}

	st.ReplyText = fmt.Sprintf("%s = %s", out.Expression, out.Result)
	return st, nil
}

func (n *Nodes) dispatchConversation(ctx context.Context, st *GraphState) (*GraphState, error) {
	text, err := n.Models.Composer().Compose(ctx, contractx.ComposeRequest{
		Intent:      contractx.IntentOther,
		UserMessage: st.Text,
		Summary:     st.Session.Context.Summary,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.Session.ID).Msg("composer failed, using canned reply")
		st.ReplyText = "I can answer questions about documents in the catalog, summarize them, or run calculations over their amounts. What would you like to do?"
		st.ModelFallback = true
		return st, nil
	}
	st.ReplyText = text
	return st, nil
}

// lookupAll fetches each document through the lookup tool so every read leaves
// an invocation behind. Not-found ids are collected rather than aborting.
func (n *Nodes) lookupAll(ctx context.Context, st *GraphState, ids []string) ([]contractx.Document, []string, error) {
	var docs []contractx.Document
	var notFound []string
	for _, id := range ids {
		res, err := n.invoke(ctx, st, toolx.ToolDocumentLookup, map[string]any{"document_id": id})
		if err != nil {
			return nil, nil, err
		}
		if res.NotFound {
			notFound = append(notFound, id)
			continue
		}
		if res.Error != "" {
			return nil, nil, fmt.Errorf("lookup %s: %s", id, res.Error)
		}
		out, ok := res.Result.(toolx.LookupOutput)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unexpected lookup output %T", contractx.ErrSchemaViolation, res.Result)
		}
		docs = append(docs, contractx.Document(out))
	}
	return docs, notFound, nil
}

// documentAmounts pulls the exact amount of each document from its metadata.
func documentAmounts(docs []contractx.Document) (amounts []decimal.Decimal, missing []string) {
	for _, doc := range docs {
		raw, ok := doc.Metadata["total"]
		if !ok {
			missing = append(missing, doc.ID)
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			missing = append(missing, doc.ID)
			continue
		}
		amounts = append(amounts, amount)
	}
	return amounts, missing
}

func buildExpression(amounts []decimal.Decimal, average bool) string {
	parts := make([]string, 0, len(amounts))
	for _, a := range amounts {
		parts = append(parts, a.String())
	}
	sum := strings.Join(parts, " + ")
	if average && len(amounts) > 1 {
		return fmt.Sprintf("(%s) / %d", sum, len(amounts))
	}
	return sum
}

func wantsAverage(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "average") || strings.Contains(lower, "mean ")
}

func describeDocuments(docs []contractx.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n")
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
				pairs = append(pairs, k+": "+doc.Metadata[k])
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(pairs, ", "))
		}
	}
	return b.String()
}

func documentIDs(docs []contractx.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
