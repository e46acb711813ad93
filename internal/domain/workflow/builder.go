package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may proceed.
// A nil return permits it; any error names the unmet condition.
type GuardFunc func(ctx context.Context) error

type rule struct {
	to    State
	guard GuardFunc
}

type ruleSet map[State]map[Trigger][]rule

// Builder collects transition rules. Rules for one trigger are tried in the
// order they were added.
type Builder struct {
	rules ruleSet
}

// StateRules adds rules leaving one source state
type StateRules struct {
	from  State
	rules map[Trigger][]rule
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{rules: make(ruleSet)}
}

// From returns the rules leaving state. Repeated calls add to the same set.
func (b *Builder) From(state State) *StateRules {
	mustBeValid("source", state)

	rules, ok := b.rules[state]
	if !ok {
		rules = make(map[Trigger][]rule)
		b.rules[state] = rules
	}
	return &StateRules{from: state, rules: rules}
}

// Permit lets trigger move to the target state unconditionally
func (s *StateRules) Permit(trigger Trigger, to State) *StateRules {
	return s.PermitIf(trigger, to, nil)
}

// PermitIf lets trigger move to the target state when guard returns nil
func (s *StateRules) PermitIf(trigger Trigger, to State, guard GuardFunc) *StateRules {
	mustBeValid("target", to)
	s.rules[trigger] = append(s.rules[trigger], rule{to: to, guard: guard})
	return s
}

// Table freezes the collected rules. Later builder changes do not affect it.
func (b *Builder) Table() *Table {
	frozen := make(ruleSet, len(b.rules))
	for from, byTrigger := range b.rules {
		copied := make(map[Trigger][]rule, len(byTrigger))
		for trigger, rules := range byTrigger {
			copied[trigger] = append([]rule(nil), rules...)
		}
		frozen[from] = copied
	}
	return &Table{rules: frozen}
}

// Table is an immutable transition graph, safe to share between goroutines
type Table struct {
	rules ruleSet
}

// Machine starts a state machine at initial
func (t *Table) Machine(initial State) StateMachine {
	mustBeValid("initial", initial)
	return &machine{state: initial, table: t}
}

// Triggers lists the triggers configured from state, sorted by name
func (t *Table) Triggers(from State) []Trigger {
	byTrigger := t.rules[from]
	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger, rules := range byTrigger {
		if len(rules) > 0 {
			triggers = append(triggers, trigger)
		}
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// Targets lists the states trigger may lead to from state, in rule order
func (t *Table) Targets(from State, trigger Trigger) []State {
	rules := t.rules[from][trigger]
	targets := make([]State, len(rules))
	for i, r := range rules {
		targets[i] = r.to
	}
	return targets
}

func mustBeValid(role string, state State) {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid %s state: %q", role, state))
	}
}

type machine struct {
	state State
	table *Table
}

func (m *machine) State() State {
	return m.state
}

func (m *machine) CanFire(trigger Trigger) bool {
	return len(m.table.rules[m.state][trigger]) > 0
}

// Fire moves to the target of the first rule whose guard passes.
// When all guards fail the first guard error is reported.
func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	rules := m.table.rules[m.state][trigger]
	if len(rules) == 0 {
		return &Error{
			Kind:    KindGuard,
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("cannot %s from state %s", trigger, m.state),
		}
	}

	var firstErr error
	for _, r := range rules {
		var err error
		if r.guard != nil {
			err = r.guard(ctx)
		}
		if err == nil {
			m.state = r.to
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if _, ok := AsError(firstErr); ok {
		return firstErr
	}
	return &Error{
		Kind:    KindGuard,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("trigger %s from state %s", trigger, m.state),
		Err:     fmt.Errorf("%w: %v", ErrGuardFailed, firstErr),
	}
}

func (m *machine) PermittedTriggers() []Trigger {
	return m.table.Triggers(m.state)
}
