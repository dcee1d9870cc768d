package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWhitelistPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.json")
	ctx := context.Background()

	wl, err := NewWhitelist(path)
	if err != nil {
		t.Fatalf("new whitelist: %v", err)
	}

	if ok, _ := wl.IsAllowed(ctx, "g1@g.us"); ok {
		t.Fatalf("expected empty whitelist to deny")
	}

	added, err := wl.Add(ctx, "g1@g.us")
	if err != nil || !added {
		t.Fatalf("add: added=%v err=%v", added, err)
	}
	if added, _ := wl.Add(ctx, "g1@g.us"); added {
		t.Fatalf("expected repeat add to report no change")
	}

	// A fresh instance must see the persisted entry.
	reloaded, err := NewWhitelist(path)
	if err != nil {
		t.Fatalf("reload whitelist: %v", err)
	}
	if ok, _ := reloaded.IsAllowed(ctx, "g1@g.us"); !ok {
		t.Fatalf("expected persisted entry to be allowed")
	}

	removed, err := reloaded.Remove(ctx, "g1@g.us")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(raw) == "" {
		t.Fatalf("expected file content after removal")
	}

	final, _ := NewWhitelist(path)
	if ok, _ := final.IsAllowed(ctx, "g1@g.us"); ok {
		t.Fatalf("expected removal to persist")
	}
}

func TestWhitelistInMemoryOnly(t *testing.T) {
	wl, err := NewWhitelist("")
	if err != nil {
		t.Fatalf("new whitelist: %v", err)
	}
	ctx := context.Background()

	if _, err := wl.Add(ctx, "g1@g.us"); err != nil {
		t.Fatalf("add: %v", err)
	}
	list, err := wl.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != "g1@g.us" {
		t.Fatalf("unexpected list %v", list)
	}
}
