// Package servlet holds the per-tool registry of dynamic request handlers.
// Each tool registers named servlets with explicit method capabilities; the
// dispatcher resolves /tool/data/name paths against this table.
package servlet

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps tool → servlet name → descriptor.
type Registry struct {
	mu       sync.RWMutex
	servlets map[string]map[string]Descriptor
}

// NewRegistry builds an empty registry; the process shares one instance.
func NewRegistry() *Registry {
	return &Registry{servlets: make(map[string]map[string]Descriptor)}
}

// Register adds a servlet; duplicate (tool, name) pairs are an error.
func (r *Registry) Register(d Descriptor) error {
	tool := normalizeKey(d.Tool)
	name := normalizeKey(d.Name)
	if tool == "" || name == "" {
		return fmt.Errorf("servlet tool and name are required")
	}
	d.Tool = tool
	d.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.servlets[tool]
	if byName == nil {
		byName = make(map[string]Descriptor)
		r.servlets[tool] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("servlet %s/%s already registered", tool, name)
	}
	byName[name] = d
	return nil
}

// MustRegister panics on registration failure; for startup wiring.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for (tool, name).
func (r *Registry) Lookup(tool, name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName, ok := r.servlets[normalizeKey(tool)]
	if !ok {
		return Descriptor{}, false
	}
	d, ok := byName[normalizeKey(name)]
	return d, ok
}

// HasTool reports whether any servlet is registered for the tool.
func (r *Registry) HasTool(tool string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.servlets[normalizeKey(tool)]
	return ok
}

// Tools returns the sorted tool names with at least one servlet.
func (r *Registry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]string, 0, len(r.servlets))
	for tool := range r.servlets {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}

// List returns the tool's descriptors sorted by name.
func (r *Registry) List(tool string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName, ok := r.servlets[normalizeKey(tool)]
	if !ok {
		return nil
	}
	result := make([]Descriptor, 0, len(byName))
	for _, d := range byName {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
