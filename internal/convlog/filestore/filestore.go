// Package filestore provides a JSON-file implementation of convlog.Store,
// one file per conversation.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/linnemanlabs/frontdesk/internal/convlog"
)

// Store persists conversations as <dir>/<id>.json.
type Store struct {
	dir string
}

// New ensures the directory exists and returns a ready Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// sanitizeID keeps conversation filenames flat regardless of what the
// mailbox put in the message ID.
func sanitizeID(id string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(id)
}

// Save writes the conversation atomically: a temp file in the same
// directory renamed over the target.
func (s *Store) Save(_ context.Context, conv *convlog.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", conv.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".conv-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write conversation %s: %w", conv.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(conv.ID)); err != nil {
		return fmt.Errorf("rename conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Load reads a conversation by ID. The second return is false when no
// file exists.
func (s *Store) Load(_ context.Context, id string) (*convlog.Conversation, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read conversation %s: %w", id, err)
	}

	var conv convlog.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, false, fmt.Errorf("unmarshal conversation %s: %w", id, err)
	}
	return &conv, true, nil
}

// List returns the stored conversation IDs in sorted order.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read conversation dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(ids)
	return ids, nil
}
