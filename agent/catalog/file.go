package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	contractx "github.com/pattarawat/docassist/agent/contract"
)

// FileCatalog serves documents loaded from *.json files in a directory and
// reloads the whole corpus when the directory changes.
type FileCatalog struct {
	*MemoryCatalog
	dir string
}

func NewFileCatalog(dir string) (*FileCatalog, error) {
	docs, err := loadDocuments(dir)
	if err != nil {
		return nil, err
	}
	return &FileCatalog{
		MemoryCatalog: NewMemoryCatalog(docs...),
		dir:           dir,
	}, nil
}

// Watch reloads the corpus on file changes until ctx is cancelled.
func (c *FileCatalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				docs, err := loadDocuments(c.dir)
				if err != nil {
					log.Warn().Err(err).Str("dir", c.dir).Msg("catalog reload failed")
					continue
				}
				c.replaceAll(docs)
				log.Info().Int("documents", len(docs)).Msg("catalog reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("catalog watcher error")
			}
		}
	}()
	return nil
}

func loadDocuments(dir string) ([]contractx.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}

	var docs []contractx.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var doc contractx.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(doc.ID) == "" {
			return nil, fmt.Errorf("document in %s has no id", entry.Name())
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
