// Package catalog provides the read-only document collaborators: a seeded
// in-memory corpus and a JSON-directory loader with hot reload.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

// MemoryCatalog holds documents in memory. Safe for concurrent readers; the
// only writer is the file loader's reload path.
type MemoryCatalog struct {
	mu    sync.RWMutex
	docs  map[string]contractx.Document
	order []string
}

func NewMemoryCatalog(docs ...contractx.Document) *MemoryCatalog {
	c := &MemoryCatalog{docs: make(map[string]contractx.Document, len(docs))}
	for _, doc := range docs {
		c.put(doc)
	}
	return c
}

func (c *MemoryCatalog) put(doc contractx.Document) {
	if _, exists := c.docs[doc.ID]; !exists {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
}

func (c *MemoryCatalog) replaceAll(docs []contractx.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make(map[string]contractx.Document, len(docs))
	c.order = nil
	for _, doc := range docs {
		c.put(doc)
	}
}

func (c *MemoryCatalog) Lookup(ctx context.Context, documentID string) (contractx.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[strings.TrimSpace(documentID)]
	if !ok {
		return contractx.Document{}, fmt.Errorf("%w: %s", contractx.ErrDocumentNotFound, documentID)
	}
	return doc, nil
}

// Search matches the query against document types (singular or plural), ids,
// and title words. Whole-word matching only, and document content is not
// searched, so generic prose ("the", "and") can never select a document.
// Results keep catalog insertion order.
func (c *MemoryCatalog) Search(ctx context.Context, query string) ([]string, error) {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := make(map[string]bool)
	for _, id := range c.order {
		doc := c.docs[id]
		words := searchWords(doc)
		typ := strings.ToLower(doc.Type)
		for _, raw := range tokens {
			token := strings.Trim(raw, ".,!?\"'()")
			if token == typ || token == typ+"s" {
				matched[id] = true
				break
			}
			if len([]rune(token)) >= 3 && words[token] {
				matched[id] = true
				break
			}
		}
	}

	var ids []string
	for _, id := range c.order {
		if matched[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// searchWords collects the lowercased id and title words of a document.
func searchWords(doc contractx.Document) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(doc.Title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	words[strings.ToLower(doc.ID)] = true
	return words
}

func (c *MemoryCatalog) List(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids, nil
}
