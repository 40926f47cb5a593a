package filestore

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/linnemanlabs/frontdesk/internal/convlog"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	conv := &convlog.Conversation{
		ID: "c1",
		Entries: []convlog.Entry{
			{
				Role:      convlog.RoleInbound,
				Content:   "where is my order",
				Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
				Metadata:  map[string]any{"subject": "Order 4711"},
			},
			{
				Role:      convlog.RoleAssistant,
				Content:   "it ships tomorrow",
				Timestamp: time.Date(2026, 8, 30, 10, 0, 5, 0, time.UTC),
			},
		},
		UpdatedAt: time.Date(2026, 8, 30, 10, 0, 5, 0, time.UTC),
	}

	if err := s.Save(ctx, conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.Load(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, conv) {
		t.Errorf("loaded = %+v, want %+v", got, conv)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	got, ok, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if ok || got != nil {
		t.Errorf("load missing = (%v, %v), want (nil, false)", got, ok)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	first := &convlog.Conversation{ID: "c1", Entries: []convlog.Entry{{Role: convlog.RoleInbound, Content: "v1"}}}
	second := &convlog.Conversation{ID: "c1", Entries: []convlog.Entry{
		{Role: convlog.RoleInbound, Content: "v1"},
		{Role: convlog.RoleAssistant, Content: "v2"},
	}}

	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, _, _ := s.Load(ctx, "c1")
	if len(got.Entries) != 2 {
		t.Errorf("entries = %d, want 2 after overwrite", len(got.Entries))
	}
}

func TestStore_SanitizesHostileIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	hostile := "../escape/attempt"
	if err := s.Save(ctx, &convlog.Conversation{ID: hostile}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The file lands inside the store directory, never above it.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("files in dir = %d, want 1", len(entries))
	}
	if filepath.Dir(filepath.Join(dir, entries[0].Name())) != dir {
		t.Error("file escaped the store directory")
	}

	got, ok, err := s.Load(ctx, hostile)
	if err != nil || !ok {
		t.Fatalf("load hostile id: ok=%v err=%v", ok, err)
	}
	if got.ID != hostile {
		t.Errorf("ID = %q, want %q preserved inside the file", got.ID, hostile)
	}
}

func TestStore_ListSortedAndSkipsStrays(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"bravo", "alpha"} {
		if err := s.Save(ctx, &convlog.Conversation{ID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	// Stray files in the directory are not conversations.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("stray"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatalf("mkdir stray: %v", err)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alpha", "bravo"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("List() = %v, want %v", ids, want)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "conversations")
	if _, err := New(dir); err != nil {
		t.Fatalf("new store: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}
