package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"building_automation/internal/models"
)

// MacroRegistry maps macro names to target bundles. Names are matched
// case-insensitively. Registered macros are never modified.
type MacroRegistry struct {
	mu     sync.RWMutex
	macros map[string]models.Macro
	check  func(models.Targets) error
}

// NewMacroRegistry returns an empty registry validating targets against th.
func NewMacroRegistry(th Thresholds) *MacroRegistry {
	return &MacroRegistry{
		macros: make(map[string]models.Macro),
		check:  th.validateTargets,
	}
}

func macroKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register adds a macro under its name.
func (r *MacroRegistry) Register(m models.Macro) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return ErrInvalidMacroName
	}
	if err := r.check(m.Targets); err != nil {
		return fmt.Errorf("macro %q: %w", m.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := macroKey(m.Name)
	if _, ok := r.macros[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateMacro, m.Name)
	}
	r.macros[key] = m
	return nil
}

// Get returns the macro registered under name.
func (r *MacroRegistry) Get(name string) (models.Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[macroKey(name)]
	return m, ok
}

// List returns all macros sorted by name.
func (r *MacroRegistry) List() []models.Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Macro, 0, len(r.macros))
	for _, m := range r.macros {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
