package nanolisp

import "github.com/dolthub/swiss"

type identKind uint8

const (
	identSymbolKind identKind = iota
	identKeywordKind
)

// internedIdent is the single heap copy shared by every textually
// equal symbol or keyword, guaranteeing the intern invariant
// (identifier equality reduces to pointer equality).
type internedIdent struct {
	text string
	kind identKind
}

type internKey struct {
	kind identKind
	text string
}

// InternTable is the hash-consing table consulted on every symbol or
// keyword construction. It is backed by a SwissTable map, the
// reference corpus's one general-purpose open-addressed hash
// container (see mna/nenuphar's go.mod) with tombstone-bearing control
// bytes, matching spec.md §3's "open-addressed hash set with
// tombstone deletion" requirement more closely than a stdlib map.
//
// One InternTable belongs to exactly one execution context and is
// never touched by more than one goroutine (spec.md §5): no locking
// is needed.
type InternTable struct {
	entries *swiss.Map[internKey, *internedIdent]
}

// NewInternTable creates an empty table primed for a modest identifier
// count; it grows like any other hash table as more are interned.
func NewInternTable() *InternTable {
	return &InternTable{entries: swiss.NewMap[internKey, *internedIdent](64)}
}

func (t *InternTable) intern(kind identKind, text string) *internedIdent {
	key := internKey{kind: kind, text: text}
	if id, ok := t.entries.Get(key); ok {
		return id
	}
	id := &internedIdent{text: text, kind: kind}
	t.entries.Put(key, id)
	return id
}

// Symbol interns text as a symbol identifier.
func (t *InternTable) Symbol(text string) Symbol {
	return Symbol{id: t.intern(identSymbolKind, text)}
}

// Keyword interns text as a keyword identifier.
func (t *InternTable) Keyword(text string) Keyword {
	return Keyword{id: t.intern(identKeywordKind, text)}
}

// Evict removes an interned identifier from the table. Modeled after
// the GC deinit hook spec.md §3 says identifiers live until hitting;
// this package doesn't own a collector, so callers that do should
// invoke this once they've proven the identifier is unreachable.
func (t *InternTable) Evict(kind identKind, text string) {
	t.entries.Delete(internKey{kind: kind, text: text})
}

// Len reports how many distinct symbols and keywords are interned.
func (t *InternTable) Len() int { return t.entries.Count() }
