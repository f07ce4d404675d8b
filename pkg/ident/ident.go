// Package ident provides the string interner used across the velc
// compiler core. Every identifier and literal string coming out of the
// lexer is canonicalized to an ID so that later passes can compare names
// by integer equality instead of string comparison.
package ident

import "sync"

// ID is a handle to an interned string. The zero value is not a valid
// handle; a fresh Interner never assigns it.
type ID uint32

// Invalid is returned by lookups that found nothing.
const Invalid ID = 0

// Interner canonicalizes strings to IDs. It is owned by a single
// compiler Session (see internal/session) and is never a package-level
// singleton, so that multiple compilations can run without sharing
// state. It is safe for concurrent use even though the core itself is
// single-threaded (spec §5), since FFI callbacks from a host may intern
// names off the main work stream.
type Interner struct {
	mu      sync.RWMutex
	byText  map[string]ID
	byID    []string // index 0 unused, so ID(0) stays Invalid
}

// New creates an empty Interner.
func New() *Interner {
	return &Interner{
		byText: make(map[string]ID, 256),
		byID:   []string{""}, // reserve index 0
	}
}

// Intern returns the canonical ID for s, allocating one if s has not been
// seen before. The interner is append-only: once assigned, an ID's text
// never changes and is never freed during a compilation (spec §5).
func (in *Interner) Intern(s string) ID {
	in.mu.RLock()
	if id, ok := in.byText[s]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byText[s]; ok {
		return id
	}
	id := ID(len(in.byID))
	in.byID = append(in.byID, s)
	in.byText[s] = id
	return id
}

// Text returns the string an ID was interned from. Panics if id is
// Invalid or unknown to this interner.
func (in *Interner) Text(id ID) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) <= 0 || int(id) >= len(in.byID) {
		panic("ident: unknown ID")
	}
	return in.byID[id]
}

// Lookup returns the ID already assigned to s, without interning it.
func (in *Interner) Lookup(s string) (ID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.byText[s]
	return id, ok
}

// Len reports how many distinct strings have been interned.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byID) - 1
}
