package giveaways

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// MemoryStore is an in-process store with the same conditional-update
// semantics as Store. Every method holds the lock for its whole body, which
// stands in for the single-statement UPDATEs and row locks of the MySQL store.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*giveaway.Giveaway
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*giveaway.Giveaway), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, g *giveaway.Giveaway) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.Entries == nil {
		g.Entries = giveaway.IDList{}
	}
	if g.Winners == nil {
		g.Winners = giveaway.IDList{}
	}
	now := m.now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	m.rows[g.ID] = clone(g)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*giveaway.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, giveaway.ErrNotFound
	}
	return clone(g), nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]giveaway.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []giveaway.Giveaway
	for _, g := range m.rows {
		if f.GuildID != "" && g.GuildID != f.GuildID {
			continue
		}
		if f.Ended != nil && g.Ended != *f.Ended {
			continue
		}
		out = append(out, *clone(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) SetMessage(_ context.Context, id, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return giveaway.ErrNotFound
	}
	g.MessageID = messageID
	return nil
}

func (m *MemoryStore) AddEntry(_ context.Context, id, userID string, exclusive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return giveaway.ErrNotFound
	}
	if g.Ended || g.Entries.Contains(userID) || (exclusive && len(g.Entries) > 0) {
		return classifyRejectedEntry(g, userID, exclusive)
	}
	g.Entries = append(g.Entries, userID)
	return nil
}

func (m *MemoryStore) RemoveEntry(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return giveaway.ErrNotFound
	}
	if g.Ended {
		return giveaway.ErrAlreadyEnded
	}
	if i := slices.Index(g.Entries, userID); i >= 0 {
		g.Entries = slices.Delete(g.Entries, i, i+1)
	}
	return nil
}

func (m *MemoryStore) Finish(_ context.Context, id string, draw func(*giveaway.Giveaway) []string) (*giveaway.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, giveaway.ErrNotFound
	}
	if g.Ended {
		return nil, giveaway.ErrAlreadyEnded
	}
	winners := giveaway.IDList(draw(clone(g)))
	if winners == nil {
		winners = giveaway.IDList{}
	}
	g.Ended = true
	g.Winners = slices.Clone(winners)
	return clone(g), nil
}

func (m *MemoryStore) ApplyPatch(_ context.Context, id string, p giveaway.Patch, now time.Time) (*giveaway.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, giveaway.ErrNotFound
	}
	if g.Ended {
		return nil, giveaway.ErrAlreadyEnded
	}
	applyPatch(g, p, now)
	return clone(g), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]giveaway.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []giveaway.Giveaway
	for _, g := range m.rows {
		if g.Ended || !due(g, now) {
			continue
		}
		if g.PendingAction != nil && *g.PendingAction == giveaway.ActionStart {
			continue
		}
		out = append(out, *clone(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndAt.Before(out[j].EndAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) EnqueueStart(ctx context.Context, g *giveaway.Giveaway, now time.Time) error {
	start := giveaway.ActionStart
	g.PendingAction = &start
	g.PendingAt = &now
	return m.Create(ctx, g)
}

func (m *MemoryStore) Enqueue(_ context.Context, id string, action giveaway.Action, patch *giveaway.Patch, now time.Time) error {
	if err := checkEnqueue(action, patch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return giveaway.ErrNotFound
	}
	if g.PendingAction != nil {
		return giveaway.ErrActionPending
	}
	a := action
	g.PendingAction = &a
	g.PendingAt = &now
	if patch != nil {
		p := *patch
		g.PendingPatch = &p
	}
	return nil
}

func (m *MemoryStore) Pending(_ context.Context, limit int) ([]giveaway.Giveaway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []giveaway.Giveaway
	for _, g := range m.rows {
		if g.PendingAction != nil {
			out = append(out, *clone(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return pendingAt(&out[i]).Before(pendingAt(&out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Ack(_ context.Context, id string, action giveaway.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok || g.PendingAction == nil || *g.PendingAction != action {
		return nil
	}
	g.PendingAction = nil
	g.PendingPatch = nil
	g.PendingAt = nil
	return nil
}

func due(g *giveaway.Giveaway, now time.Time) bool {
	switch g.Mode {
	case giveaway.ModeStandard:
		return !g.EndAt.After(now)
	case giveaway.ModeInstant:
		return len(g.Entries) > 0
	}
	return false
}

func pendingAt(g *giveaway.Giveaway) time.Time {
	if g.PendingAt == nil {
		return time.Time{}
	}
	return *g.PendingAt
}

func clone(g *giveaway.Giveaway) *giveaway.Giveaway {
	c := *g
	c.Entries = slices.Clone(g.Entries)
	c.Winners = slices.Clone(g.Winners)
	if g.PendingAction != nil {
		a := *g.PendingAction
		c.PendingAction = &a
	}
	if g.PendingPatch != nil {
		p := *g.PendingPatch
		c.PendingPatch = &p
	}
	if g.PendingAt != nil {
		t := *g.PendingAt
		c.PendingAt = &t
	}
	return &c
}
