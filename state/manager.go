// Package state holds the edge-triggered storage of a behavioural unit.
//
// Values live in two slots. Reads during an evaluation see the active slot,
// writes go to a staged copy, and CommitAll moves every staged copy into the
// active slot at once, the way flip-flops capture on a clock edge.
package state

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Errors returned by the Manager.
var (
	ErrEmptyKey      = errors.New("state: key must be non-empty")
	ErrNilValue      = errors.New("state: value must be non-nil")
	ErrDuplicatedKey = errors.New("state: key already registered")
	ErrUnknownKey    = errors.New("state: key is not registered")
)

// Manager owns named state objects and coordinates staged updates.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	initial   any
	active    any
	staged    any
	hasStaged bool
}

// NewManager constructs a Manager with no registered states.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Register installs a value under key. The value is deep copied; it becomes
// both the active value and the value restored by Reset. Only exported fields
// survive the copy.
func (m *Manager) Register(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	if value == nil {
		return errors.Wrapf(ErrNilValue, "key %q", key)
	}

	initial, err := deepCopy(value)
	if err != nil {
		return errors.Wrapf(err, "state: unable to copy value for %q", key)
	}

	active, err := deepCopy(value)
	if err != nil {
		return errors.Wrapf(err, "state: unable to copy value for %q", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return errors.Wrapf(ErrDuplicatedKey, "key %q", key)
	}

	m.entries[key] = &entry{initial: initial, active: active}

	return nil
}

// Load returns a deep copy of the active value stored under key.
func (m *Manager) Load(key string) (any, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownKey, "key %q", key)
	}

	return deepCopy(e.active)
}

// Stage returns a mutable copy of the active value. Repeated calls before a
// commit return the same staged copy.
func (m *Manager) Stage(key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKey, "key %q", key)
	}

	if e.hasStaged {
		return e.staged, nil
	}

	staged, err := deepCopy(e.active)
	if err != nil {
		return nil, errors.Wrapf(err, "state: unable to copy value for %q", key)
	}

	e.staged = staged
	e.hasStaged = true

	return e.staged, nil
}

// CommitAll applies all staged values to their active slots.
func (m *Manager) CommitAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.hasStaged {
			e.active = e.staged
			e.staged = nil
			e.hasStaged = false
		}
	}
}

// DiscardAll forgets every staged value without committing it.
func (m *Manager) DiscardAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		e.staged = nil
		e.hasStaged = false
	}
}

// Reset drops staged values and restores every entry to the value it was
// registered with.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		v, err := deepCopy(e.initial)
		if err != nil {
			return errors.Wrapf(err, "state: unable to reset %q", key)
		}

		e.active = v
		e.staged = nil
		e.hasStaged = false
	}

	return nil
}

func deepCopy(value any) (any, error) {
	registerGobType(value)

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	typ := reflect.TypeOf(value)
	var target reflect.Value
	if typ.Kind() == reflect.Ptr {
		target = reflect.New(typ.Elem())
	} else {
		target = reflect.New(typ)
	}

	dec := gob.NewDecoder(&buf)
	if err := dec.Decode(target.Interface()); err != nil {
		return nil, err
	}

	if typ.Kind() == reflect.Ptr {
		return target.Interface(), nil
	}

	return target.Elem().Interface(), nil
}

func registerGobType(value any) {
	typ := reflect.TypeOf(value)
	gob.Register(value)
	if typ.Kind() != reflect.Ptr {
		gob.Register(reflect.New(typ).Interface())
	}
}
