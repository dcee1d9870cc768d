package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Whitelist is the set of group ids authorized to run the bot, persisted as
// a flat JSON list on disk. With an empty path it is purely in-memory.
type Whitelist struct {
	path string

	mu     sync.RWMutex
	groups map[string]struct{}
}

type whitelistFile struct {
	Groups []string `json:"groups"`
}

// NewWhitelist loads the whitelist from path, treating a missing file as an
// empty set.
func NewWhitelist(path string) (*Whitelist, error) {
	w := &Whitelist{path: path, groups: make(map[string]struct{})}
	if path == "" {
		return w, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}

	var file whitelistFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse whitelist: %w", err)
	}
	for _, g := range file.Groups {
		w.groups[g] = struct{}{}
	}
	return w, nil
}

func (w *Whitelist) IsAllowed(_ context.Context, groupID string) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.groups[groupID]
	return ok, nil
}

// Add inserts the group and persists; it reports whether the group was new.
func (w *Whitelist) Add(_ context.Context, groupID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.groups[groupID]; ok {
		return false, nil
	}
	w.groups[groupID] = struct{}{}
	return true, w.saveLocked()
}

// Remove deletes the group and persists; it reports whether it was present.
func (w *Whitelist) Remove(_ context.Context, groupID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.groups[groupID]; !ok {
		return false, nil
	}
	delete(w.groups, groupID)
	return true, w.saveLocked()
}

// List returns the authorized group ids in stable order.
func (w *Whitelist) List(_ context.Context) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	groups := make([]string, 0, len(w.groups))
	for g := range w.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func (w *Whitelist) saveLocked() error {
	if w.path == "" {
		return nil
	}
	groups := make([]string, 0, len(w.groups))
	for g := range w.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	data, err := json.MarshalIndent(whitelistFile{Groups: groups}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal whitelist: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create whitelist dir: %w", err)
		}
	}
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("write whitelist: %w", err)
	}
	return nil
}
