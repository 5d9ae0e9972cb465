// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry manages command registration and lookup by name or alias.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]CommandEntry
	aliases  map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]CommandEntry),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. A command with the same name is overwritten and
// a warning is logged; last registration wins.
func (r *Registry) Register(entry CommandEntry) error {
	name := strings.ToLower(strings.TrimSpace(entry.Name))
	if name == "" {
		return ErrInvalidArgs("register", "command name is required")
	}
	if entry.Handler == nil {
		return ErrInvalidArgs("register", "command "+name+" has no handler")
	}
	entry.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.commands[name]; ok {
		slog.Warn("command conflict: overwriting existing command",
			"command", name,
			"previous_source", existing.Source,
			"new_source", entry.Source)
	}

	r.commands[name] = entry
	for _, alias := range entry.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	return nil
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) (CommandEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	entry, ok := r.commands[name]
	return entry, ok
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []CommandEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CommandEntry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
