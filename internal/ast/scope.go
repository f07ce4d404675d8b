package ast

import "github.com/veillang/velc/pkg/ident"

// SymbolStatus is the six-state lattice the Refer Pass walks each local
// binding through (spec §3 "Symbol table").
type SymbolStatus int

const (
	StatusUndefined SymbolStatus = iota
	StatusDefined
	StatusConsumed
	StatusConsumedInTry
	StatusFFIDecl
	StatusError
)

func (s SymbolStatus) String() string {
	switch s {
	case StatusUndefined:
		return "undefined"
	case StatusDefined:
		return "defined"
	case StatusConsumed:
		return "consumed"
	case StatusConsumedInTry:
		return "consumed-in-try"
	case StatusFFIDecl:
		return "ffi-decl"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// SymbolEntry binds a name to the node that defines it, plus the
// definite-assignment status the Refer Pass maintains for it.
type SymbolEntry struct {
	Name   ident.ID
	Def    Node
	Status SymbolStatus
}

// Scope is the symbol table attached to every scope-introducing node
// (spec §3: "an optional symbol table (present for scope-introducing
// kinds)" — program, package, module, entity, method, block, match-case,
// loop body, recover expression, lambda body). Unlike the teacher, which
// keeps symbol tables in an external per-pass registry, Vel attaches one
// directly to the node it scopes, matching the data model literally;
// passes still reach it only through Base.Scope(), never a global map.
type Scope struct {
	Parent  *Scope
	entries map[ident.ID]*SymbolEntry
	order   []ident.ID // insertion order, for deterministic iteration (spec §7 stable diagnostics)
}

func newScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, entries: make(map[ident.ID]*SymbolEntry)}
}

// Declare adds a new entry. It returns false without modifying the scope
// if name is already declared in this scope (not an ancestor) — the
// caller (Scope/Name pass) turns that into a redeclaration diagnostic.
func (s *Scope) Declare(name ident.ID, def Node) (*SymbolEntry, bool) {
	if _, exists := s.entries[name]; exists {
		return nil, false
	}
	e := &SymbolEntry{Name: name, Def: def, Status: StatusDefined}
	s.entries[name] = e
	s.order = append(s.order, name)
	return e, true
}

// Lookup searches this scope and its ancestors.
func (s *Scope) Lookup(name ident.ID) (*SymbolEntry, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if e, ok := sc.entries[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// LookupLocal searches only this scope, not its ancestors.
func (s *Scope) LookupLocal(name ident.ID) (*SymbolEntry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// Entries returns the scope's own bindings in declaration order.
func (s *Scope) Entries() []*SymbolEntry {
	out := make([]*SymbolEntry, len(s.order))
	for i, n := range s.order {
		out[i] = s.entries[n]
	}
	return out
}
