package chat

import (
	"sort"
	"sync"

	"golang.org/x/text/cases"
)

// OnlineView is the deduplicated, sorted list of display names currently
// online.
type OnlineView struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

type presenceEntry struct {
	name string
	seq  uint64
}

// Presence maps live connection ids to display names.
//
// Names are compared with Unicode case folding. When several connections use
// the same name with different casing, the casing of the earliest registered
// connection still online is the one shown.
type Presence struct {
	mu      sync.RWMutex
	entries map[string]presenceEntry
	nextSeq uint64
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{entries: make(map[string]presenceEntry)}
}

// Register upserts the name for connectionID and returns the new view.
// Re-registering a connection under the same name keeps its position in the
// registration order.
func (p *Presence) Register(connectionID, displayName string) OnlineView {
	name := ResolveName(displayName)

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.entries[connectionID]; ok && existing.name == name {
		return p.viewLocked()
	}

	p.nextSeq++
	p.entries[connectionID] = presenceEntry{name: name, seq: p.nextSeq}
	return p.viewLocked()
}

// Remove drops connectionID if present and returns the new view.
func (p *Presence) Remove(connectionID string) OnlineView {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.entries, connectionID)
	return p.viewLocked()
}

// CurrentView returns the view without modifying the registry.
func (p *Presence) CurrentView() OnlineView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.viewLocked()
}

// Connections returns the number of registered connections, which may exceed
// the number of distinct names.
func (p *Presence) Connections() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

func (p *Presence) viewLocked() OnlineView {
	entries := make([]presenceEntry, 0, len(p.entries))
	for _, entry := range p.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	type representative struct {
		key  string
		name string
	}

	// A Caser keeps state between calls and must not be shared.
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(entries))
	reps := make([]representative, 0, len(entries))
	for _, entry := range entries {
		key := fold.String(entry.name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		reps = append(reps, representative{key: key, name: entry.name})
	}

	sort.SliceStable(reps, func(i, j int) bool {
		return reps[i].key < reps[j].key
	})

	users := make([]string, len(reps))
	for i, rep := range reps {
		users[i] = rep.name
	}
	return OnlineView{Count: len(users), Users: users}
}
