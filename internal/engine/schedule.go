package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"building_automation/internal/models"

	"github.com/google/uuid"
)

// ScheduleTable holds non-overlapping daily schedule rules.
//
// Overlap policy: a rule whose window shares any minute with an existing rule is
// rejected at insertion with ErrOverlappingWindow, so at most one rule matches any
// instant and lookups never depend on insertion order.
//
// All methods are safe for concurrent use.
type ScheduleTable struct {
	mu    sync.RWMutex
	rules []models.ScheduleRule // sorted by window start
	loc   *time.Location
	check func(models.Targets) error
}

// NewScheduleTable returns an empty table evaluating instants in loc (time.Local when nil).
func NewScheduleTable(loc *time.Location, th Thresholds) *ScheduleTable {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleTable{loc: loc, check: th.validateTargets}
}

// AddRule validates and inserts a rule. On error the table is unchanged.
func (t *ScheduleTable) AddRule(rule models.ScheduleRule) (models.ScheduleRule, error) {
	if !rule.Window.Valid() {
		return models.ScheduleRule{}, fmt.Errorf("%w: %d-%d", ErrInvalidWindow, rule.Window.Start, rule.Window.End)
	}
	if err := t.check(rule.Targets); err != nil {
		return models.ScheduleRule{}, err
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.rules {
		if existing.ID == rule.ID {
			return models.ScheduleRule{}, fmt.Errorf("%w: %q", ErrDuplicateRule, rule.ID)
		}
		if existing.Window.Overlaps(rule.Window) {
			return models.ScheduleRule{}, fmt.Errorf("%w: %s overlaps %q (%s)",
				ErrOverlappingWindow, rule.Window, existing.Label(), existing.Window)
		}
	}

	t.rules = append(t.rules, rule)
	sort.Slice(t.rules, func(i, j int) bool {
		return t.rules[i].Window.Start < t.rules[j].Window.Start
	})
	return rule, nil
}

// RuleAt returns the rule whose window contains the time of day of at.
func (t *ScheduleTable) RuleAt(at time.Time) (models.ScheduleRule, bool) {
	clock := models.ClockOf(at.In(t.loc))

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.rules {
		if r.Window.Contains(clock) {
			return r, true
		}
	}
	return models.ScheduleRule{}, false
}

// Rules returns a copy of the rules ordered by window start.
func (t *ScheduleTable) Rules() []models.ScheduleRule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ScheduleRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Len returns the number of rules.
func (t *ScheduleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}

// Location returns the zone used to evaluate instants.
func (t *ScheduleTable) Location() *time.Location { return t.loc }

// Remove deletes the rule with the given id and reports whether it was present.
func (t *ScheduleTable) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, r := range t.rules {
		if r.ID == id {
			t.rules = append(t.rules[:i], t.rules[i+1:]...)
			return true
		}
	}
	return false
}
