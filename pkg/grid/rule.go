package grid

import (
	"fmt"
	"sort"
	"sync"
)

// Rule maps the neighbor count of a cell to its value in the next generation.
// The cell's own value is never part of the count.
type Rule interface {
	Next(neighbors int) uint8
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(neighbors int) uint8

// Next calls f.
func (f RuleFunc) Next(neighbors int) uint8 { return f(neighbors) }

// Table is a rule indexed by neighbor count. Counts past the end of the table
// map to 0.
type Table []uint8

// Next looks up the next value for the given count.
func (t Table) Next(neighbors int) uint8 {
	if neighbors < 0 || neighbors >= len(t) {
		return 0
	}
	return t[neighbors]
}

// Validate checks that every entry is 0 or 1 and the table covers no more
// counts than the largest neighborhood can produce.
func (t Table) Validate() error {
	if len(t) > Moore.Size()+1 {
		return fmt.Errorf("%w: rule table has %d entries, at most %d allowed", ErrValue, len(t), Moore.Size()+1)
	}
	for i, v := range t {
		if v > 1 {
			return fmt.Errorf("%w: rule table entry %d is %d", ErrValue, i, v)
		}
	}
	return nil
}

// Canonical keeps a cell alive with two or three neighbors and kills it
// otherwise: counts 0-1 give 0, 2-3 give 1, 4 and above give 0.
var Canonical = Table{0, 0, 1, 1}

// CanonicalName is the registry name of Canonical.
const CanonicalName = "canonical"

var (
	rulesMu sync.RWMutex
	rules   = map[string]Rule{}
)

// RegisterRule adds a rule under the provided name, replacing any previous
// entry. Empty names and nil rules are ignored.
func RegisterRule(name string, r Rule) {
	if name == "" || r == nil {
		return
	}
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rules[name] = r
}

// LookupRule returns the rule registered under name.
func LookupRule(name string) (Rule, bool) {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	r, ok := rules[name]
	return r, ok
}

// Rules returns the registered rule names in sorted order.
func Rules() []string {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterRule(CanonicalName, Canonical)
}
