// Package store provides schedule.Store implementations.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/VJyzCELERY/Intellecta/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	users map[string]*namespace
}

type namespace struct {
	events    map[string]schedule.Event
	instances map[string][]schedule.Instance // sorted by Start
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]*namespace)}
}

func (m *Memory) ns(userID string) *namespace {
	n, ok := m.users[userID]
	if !ok {
		n = &namespace{
			events:    make(map[string]schedule.Event),
			instances: make(map[string][]schedule.Instance),
		}
		m.users[userID] = n
	}
	return n
}

func (m *Memory) CreateEvent(_ context.Context, userID string, ev schedule.Event, instances []schedule.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.ns(userID)
	if _, exists := n.events[ev.ID]; exists {
		return schedule.ErrEventExists
	}
	n.events[ev.ID] = ev
	n.instances[ev.ID] = insertSorted(nil, instances)
	return nil
}

func (m *Memory) GetEvent(_ context.Context, userID, eventID string) (*schedule.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	ev, ok := n.events[eventID]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (m *Memory) InstancesFrom(_ context.Context, userID string, from time.Time, limit int) ([]schedule.EventInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []schedule.EventInstance
	n, ok := m.users[userID]
	if !ok {
		return rows, nil
	}
	for eventID, instances := range n.instances {
		ev := n.events[eventID]
		for _, inst := range instances {
			if !inst.End.Before(from) {
				rows = append(rows, joined(ev, inst))
			}
		}
	}
	sortRows(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *Memory) InstancesInRange(_ context.Context, userID string, from, to time.Time) ([]schedule.EventInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []schedule.EventInstance
	n, ok := m.users[userID]
	if !ok {
		return rows, nil
	}
	for eventID, instances := range n.instances {
		ev := n.events[eventID]
		for _, inst := range instances {
			if inst.Start.Before(to) && !inst.End.Before(from) {
				rows = append(rows, joined(ev, inst))
			}
		}
	}
	sortRows(rows)
	return rows, nil
}

func (m *Memory) LastInstance(_ context.Context, userID, eventID string) (*schedule.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	instances := n.instances[eventID]
	if len(instances) == 0 {
		return nil, nil
	}
	last := instances[len(instances)-1]
	return &last, nil
}

func (m *Memory) CountInstances(_ context.Context, userID, eventID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.users[userID]
	if !ok {
		return 0, nil
	}
	return len(n.instances[eventID]), nil
}

func (m *Memory) CountInstancesFrom(_ context.Context, userID, eventID string, from time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.users[userID]
	if !ok {
		return 0, nil
	}
	count := 0
	for _, inst := range n.instances[eventID] {
		if !inst.Start.Before(from) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) AppendInstances(_ context.Context, userID, eventID string, instances []schedule.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.ns(userID)
	if _, ok := n.events[eventID]; !ok {
		return schedule.ErrEventNotFound
	}

	existing := n.instances[eventID]
	for i := range existing {
		if existing[i].Continue == schedule.FlagContinue {
			existing[i].Continue = schedule.FlagNotApplicable
		}
	}
	n.instances[eventID] = insertSorted(existing, instances)
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, userID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.users[userID]
	if !ok {
		return nil
	}
	delete(n.events, eventID)
	delete(n.instances, eventID)
	return nil
}

func (m *Memory) DeleteInstance(_ context.Context, userID, eventID string, start time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.users[userID]
	if !ok {
		return nil
	}
	instances := n.instances[eventID]
	for i, inst := range instances {
		if inst.Start.Equal(start) {
			n.instances[eventID] = append(instances[:i:i], instances[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) DeleteInstancesFrom(_ context.Context, userID, eventID string, from time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.users[userID]
	if !ok {
		return nil
	}
	var kept []schedule.Instance
	for _, inst := range n.instances[eventID] {
		if inst.Start.Before(from) {
			kept = append(kept, inst)
		}
	}
	n.instances[eventID] = kept
	return nil
}

func (m *Memory) SetContinueFlag(_ context.Context, userID, eventID string, start time.Time, flag schedule.ContinueFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.users[userID]
	if !ok {
		return nil
	}
	instances := n.instances[eventID]
	for i := range instances {
		if instances[i].Start.Equal(start) {
			instances[i].Continue = flag
			return nil
		}
	}
	return nil
}

// ExportRaw serializes the namespace as JSON. The format is opaque to
// callers; it only needs to round-trip the namespace contents.
func (m *Memory) ExportRaw(_ context.Context, userID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return json.Marshal(struct {
		Events    map[string]schedule.Event      `json:"events"`
		Instances map[string][]schedule.Instance `json:"instances"`
	}{n.events, n.instances})
}

// Helpers

func insertSorted(existing, more []schedule.Instance) []schedule.Instance {
	out := append(existing, more...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func joined(ev schedule.Event, inst schedule.Instance) schedule.EventInstance {
	return schedule.EventInstance{
		EventID:     ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Repeat:      ev.Repeat,
		Start:       inst.Start,
		End:         inst.End,
		Continue:    inst.Continue,
	}
}

func sortRows(rows []schedule.EventInstance) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Start.Equal(rows[j].Start) {
			return rows[i].EventID < rows[j].EventID
		}
		return rows[i].Start.Before(rows[j].Start)
	})
}
