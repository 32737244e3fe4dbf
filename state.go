// FILE: state.go
// Package main – Per-symbol gating state.
//
// One SymbolState per traded symbol, created lazily on the first tick and kept
// for the whole session. The gates (Entered, Pyramided, Limited) only ever go
// false→true. Lookups of unknown symbols return the zero record instead of
// failing, so callers never branch on "missing".
//
// The store is owned by a single strategy and is only touched from the
// dispatcher goroutine; it takes no locks.

package main

import "sort"

// SymbolState is the gating record for one symbol.
type SymbolState struct {
	Entered   bool  `json:"entered"`
	Pyramided bool  `json:"pyramided"`
	Limited   bool  `json:"limited"` // resting limit order sent
	LastTick  *Tick `json:"last_tick,omitempty"`
}

// StateStore maps symbol → SymbolState.
type StateStore struct {
	m map[string]*SymbolState
}

func NewStateStore() *StateStore {
	return &StateStore{m: make(map[string]*SymbolState)}
}

// Lookup returns a copy of the record for sym, or the default (all gates
// false, no tick) when the symbol has never been seen.
func (s *StateStore) Lookup(sym string) SymbolState {
	if st, ok := s.m[sym]; ok {
		return st.clone()
	}
	return SymbolState{}
}

func (st *SymbolState) clone() SymbolState {
	out := *st
	if st.LastTick != nil {
		tk := *st.LastTick
		out.LastTick = &tk
	}
	return out
}

// ensure returns the live record for sym, creating the default one.
func (s *StateStore) ensure(sym string) *SymbolState {
	st, ok := s.m[sym]
	if !ok {
		st = &SymbolState{}
		s.m[sym] = st
	}
	return st
}

// ObserveTick overwrites the last tick and creates the record if absent.
// Gates are left untouched.
func (s *StateStore) ObserveTick(t Tick) {
	tk := t
	s.ensure(t.Symbol).LastTick = &tk
}

// LastTick returns the last tick seen for sym.
func (s *StateStore) LastTick(sym string) (Tick, bool) {
	st, ok := s.m[sym]
	if !ok || st.LastTick == nil {
		return Tick{}, false
	}
	return *st.LastTick, true
}

// MarkEntered flips Entered and reports whether this call did the flip.
// A false return means the gate was already closed.
func (s *StateStore) MarkEntered(sym string) bool {
	st := s.ensure(sym)
	if st.Entered {
		return false
	}
	st.Entered = true
	return true
}

// MarkPyramided flips Pyramided; same contract as MarkEntered.
func (s *StateStore) MarkPyramided(sym string) bool {
	st := s.ensure(sym)
	if st.Pyramided {
		return false
	}
	st.Pyramided = true
	return true
}

// MarkLimited flips Limited; same contract as MarkEntered.
func (s *StateStore) MarkLimited(sym string) bool {
	st := s.ensure(sym)
	if st.Limited {
		return false
	}
	st.Limited = true
	return true
}

// Symbols lists known symbols in sorted order.
func (s *StateStore) Symbols() []string {
	out := make([]string, 0, len(s.m))
	for sym := range s.m {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies every record (used for state dumps).
func (s *StateStore) Snapshot() map[string]SymbolState {
	out := make(map[string]SymbolState, len(s.m))
	for sym, st := range s.m {
		out[sym] = st.clone()
	}
	return out
}
