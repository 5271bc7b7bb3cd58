package statemachine

import (
	"fmt"
	"sort"
)

// Transition declares the edges and policy of one non-terminal state.
type Transition struct {
	// Next is the successor after a successful attempt.
	Next State

	// OnFailure is the successor after a fatal failure, reached once the
	// pending cleanup actions have been torn down. Ignored for teardown
	// states, which always continue to Next.
	OnFailure State

	// Retries is the number of extra attempts allowed for retryable outcomes.
	Retries int

	// Teardown marks a state that releases a previously started resource.
	// Its failures degrade the final status but never divert the execution.
	Teardown bool
}

// Table is an immutable, validated transition table.
type Table struct {
	transitions map[State]Transition
}

// NewTable validates transitions and returns an immutable table.
//
// Validation requires every edge to target a known state, no terminal state
// to carry a transition, and the graph formed by success and failure edges
// to be acyclic, so that every path reaches DONE or FAILED.
func NewTable(transitions map[State]Transition) (*Table, error) {
	t := &Table{transitions: make(map[State]Transition, len(transitions))}
	for s, tr := range transitions {
		if s.IsTerminal() {
			return nil, fmt.Errorf("%w: terminal state %s has a transition", ErrInvalidTable, s)
		}
		if tr.Retries < 0 {
			return nil, fmt.Errorf("%w: %s has negative retries", ErrInvalidTable, s)
		}
		t.transitions[s] = tr
	}
	for _, s := range t.States() {
		for _, target := range t.edges(s) {
			if _, ok := t.transitions[target]; !ok && !target.IsTerminal() {
				return nil, fmt.Errorf("%w: %s targets unknown state %s", ErrInvalidTable, s, target)
			}
		}
	}
	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup returns the transition declared for s.
func (t *Table) Lookup(s State) (Transition, bool) {
	tr, ok := t.transitions[s]
	return tr, ok
}

// Len returns the number of non-terminal states.
func (t *Table) Len() int { return len(t.transitions) }

// States returns the non-terminal states in ascending order.
func (t *Table) States() []State {
	out := make([]State, 0, len(t.transitions))
	for s := range t.transitions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Path returns the states visited from start when every stage succeeds,
// including the terminal state.
func (t *Table) Path(start State) []State {
	path := []State{start}
	for cur := start; !cur.IsTerminal(); {
		tr, ok := t.transitions[cur]
		if !ok {
			break
		}
		cur = tr.Next
		path = append(path, cur)
	}
	return path
}

func (t *Table) edges(s State) []State {
	tr := t.transitions[s]
	if tr.Teardown {
		return []State{tr.Next}
	}
	return []State{tr.Next, tr.OnFailure}
}

func (t *Table) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	marks := make(map[State]int, len(t.transitions))

	var visit func(State) error
	visit = func(s State) error {
		if s.IsTerminal() {
			return nil
		}
		switch marks[s] {
		case visiting:
			return fmt.Errorf("%w: cycle through %s", ErrInvalidTable, s)
		case visited:
			return nil
		}
		marks[s] = visiting
		for _, next := range t.edges(s) {
			if err := visit(next); err != nil {
				return err
			}
		}
		marks[s] = visited
		return nil
	}

	for _, s := range t.States() {
		if err := visit(s); err != nil {
			return err
		}
	}
	return nil
}
