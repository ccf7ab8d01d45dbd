package symbolindex

import (
	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
)

// machineImageSymbolAlias is a local name for machoimage.Symbol used in the
// signatures below.
type machineImageSymbolAlias = machoimage.Symbol

// AllSymbols returns every classified root-global symbol in build order.
func (s *Storage) AllSymbols() []*IndexedSymbol {
	out := make([]*IndexedSymbol, len(s.allSymbols))
	copy(out, s.allSymbols)
	for _, sym := range out {
		sym.markConsumed()
	}
	return out
}

// SymbolsByKind returns the root-global symbols whose payload (root's first
// child) has the given kind, in insertion order.
func (s *Storage) SymbolsByKind(k mangle.Kind) []*IndexedSymbol {
	syms := s.allByKind[k]
	for _, sym := range syms {
		sym.markConsumed()
	}
	out := make([]*IndexedSymbol, len(syms))
	copy(out, syms)
	return out
}

// Symbols returns the root-global symbols whose payload kind is one of
// kinds, in the order the caller's kind list names them (per SPEC_FULL.md
// §1.5: "the kind list supplied by the caller is authoritative for outer
// order").
func (s *Storage) Symbols(kinds ...mangle.Kind) []*IndexedSymbol {
	var out []*IndexedSymbol
	for _, k := range kinds {
		out = append(out, s.SymbolsByKind(k)...)
	}
	return out
}

// TypeInfo looks up the recorded kind for a type name encountered while
// classifying member symbols.
func (s *Storage) TypeInfo(name string) (TypeInfo, bool) {
	ti, ok := s.typeInfoByName[name]
	return ti, ok
}

// TypeNames returns every type name observed while classifying member
// symbols, in first-contact insertion order. Used by the "did you mean"
// suggestion for an unresolvable resilient witness.
func (s *Storage) TypeNames() []string {
	out := make([]string, len(s.typeNameOrder))
	copy(out, s.typeNameOrder)
	return out
}

// SymbolsAtOffset returns every raw symbol recorded at the given offset
// (there may be more than one: ordinary + shared-cache-biased forms, or
// ordinary + exported forms).
func (s *Storage) SymbolsAtOffset(offset int) []machineImageSymbolAlias {
	return s.symbolsByOffset[offset]
}

// DemangledNode returns the demangled tree for sym, falling back to an
// on-demand demangle (without mutating shared state) if it was not
// recorded during Build — safe to call concurrently.
func (s *Storage) DemangledNode(sym machineImageSymbolAlias) (*mangle.Node, error) {
	if n, ok := s.demangledNodeBySymbol[symbolKey{Offset: sym.Offset, Name: sym.Name}]; ok {
		return n, nil
	}
	return mangle.Demangle(sym.Name)
}

// GlobalsByKind returns the global symbols of the given kind in insertion
// order.
func (s *Storage) GlobalsByKind(k GlobalKind) []*IndexedSymbol {
	syms := s.globalsByKind[k]
	for _, sym := range syms {
		sym.markConsumed()
	}
	out := make([]*IndexedSymbol, len(syms))
	copy(out, syms)
	return out
}

// OpaqueTypeDescriptor returns the symbol recorded against the given opaque
// return-type node, if any. Only ever populated for symbols with offset > 0
// (SPEC_FULL.md §1.7 invariant).
func (s *Storage) OpaqueTypeDescriptor(node *mangle.Node) (*IndexedSymbol, bool) {
	e, ok := s.opaqueTypeDescriptorByNode[node.StructuralKey()]
	if !ok {
		return nil, false
	}
	e.sym.markConsumed()
	return e.sym, true
}

// MemberSymbolsQuery selects which of the three member buckets
// (membersByKind, methodDescriptorMembers, protocolWitnessMembers) a query
// reads from.
type MemberSymbolsQuery int

const (
	QueryMembers MemberSymbolsQuery = iota
	QueryMethodDescriptors
	QueryProtocolWitnesses
)

func (s *Storage) bucketsFor(q MemberSymbolsQuery) (map[MemberKind]*memberBucket, []MemberKind) {
	switch q {
	case QueryMethodDescriptors:
		return s.methodDescriptorMembers, s.methodDescriptorOrder
	case QueryProtocolWitnesses:
		return s.protocolWitnessMembers, s.protocolWitnessOrder
	default:
		return s.membersByKind, s.memberKindOrder
	}
}

// MemberSymbols returns, for each requested kind in caller order, the
// member symbols of that kind across all types.
func (s *Storage) MemberSymbols(q MemberSymbolsQuery, kinds ...MemberKind) []*IndexedSymbol {
	buckets, _ := s.bucketsFor(q)
	var out []*IndexedSymbol
	for _, k := range kinds {
		b, ok := buckets[k]
		if !ok {
			continue
		}
		for _, name := range b.nameOrder {
			tnb := b.byTypeName[name]
			for _, key := range tnb.nodeOrder {
				for _, sym := range tnb.nodes[key].symbols {
					sym.markConsumed()
					out = append(out, sym)
				}
			}
		}
	}
	return out
}

// MemberSymbolsForType returns, for each requested kind, the member symbols
// of that kind owned by typeName.
func (s *Storage) MemberSymbolsForType(q MemberSymbolsQuery, typeName string, kinds ...MemberKind) []*IndexedSymbol {
	buckets, _ := s.bucketsFor(q)
	var out []*IndexedSymbol
	for _, k := range kinds {
		b, ok := buckets[k]
		if !ok {
			continue
		}
		tnb, ok := b.byTypeName[typeName]
		if !ok {
			continue
		}
		for _, key := range tnb.nodeOrder {
			for _, sym := range tnb.nodes[key].symbols {
				sym.markConsumed()
				out = append(out, sym)
			}
		}
	}
	return out
}

// MemberSymbolsForNode returns, for each requested kind, the member symbols
// of that kind owned by the exact (typeName, typeNode) pair.
func (s *Storage) MemberSymbolsForNode(q MemberSymbolsQuery, typeName string, typeNode *mangle.Node, kinds ...MemberKind) []*IndexedSymbol {
	buckets, _ := s.bucketsFor(q)
	key := typeNode.StructuralKey()
	var out []*IndexedSymbol
	for _, k := range kinds {
		b, ok := buckets[k]
		if !ok {
			continue
		}
		tnb, ok := b.byTypeName[typeName]
		if !ok {
			continue
		}
		entry, ok := tnb.nodes[key]
		if !ok {
			continue
		}
		for _, sym := range entry.symbols {
			sym.markConsumed()
			out = append(out, sym)
		}
	}
	return out
}

// KindBucket groups one kind's member symbols.
type KindBucket struct {
	Kind    MemberKind
	Symbols []*IndexedSymbol
}

// MemberSymbolsByKindMap returns, for each requested kind, its symbols, as
// a kind-ordered list of buckets (the "map<kind -> list>" variant of
// spec.md §4.1).
func (s *Storage) MemberSymbolsByKindMap(q MemberSymbolsQuery, typeName string, kinds ...MemberKind) []KindBucket {
	buckets, _ := s.bucketsFor(q)
	var out []KindBucket
	for _, k := range kinds {
		b, ok := buckets[k]
		if !ok {
			out = append(out, KindBucket{Kind: k})
			continue
		}
		tnb, ok := b.byTypeName[typeName]
		if !ok {
			out = append(out, KindBucket{Kind: k})
			continue
		}
		var syms []*IndexedSymbol
		for _, key := range tnb.nodeOrder {
			for _, sym := range tnb.nodes[key].symbols {
				sym.markConsumed()
				syms = append(syms, sym)
			}
		}
		out = append(out, KindBucket{Kind: k, Symbols: syms})
	}
	return out
}

// NodeGroup is one (typeNode -> {typeName, members by kind}) entry of the
// "map<typeNode -> {typeName, map<kind -> list>}>" query variant used by
// Interface Indexer Phase 4 to enumerate extensions.
type NodeGroup struct {
	TypeNode *mangle.Node
	TypeName string
	ByKind   []KindBucket
}

// MemberSymbolsByNodeMap enumerates every (typeNode, {typeName, members by
// kind}) group across all type names for the requested kinds, in
// insertion order, excluding any type name present in excluding.
func (s *Storage) MemberSymbolsByNodeMap(q MemberSymbolsQuery, excluding map[string]struct{}, kinds ...MemberKind) []NodeGroup {
	buckets, _ := s.bucketsFor(q)

	// Collect the set of (typeName, typeNode) pairs touched by any
	// requested kind, preserving first-contact insertion order across
	// kinds in caller order.
	type pairKey struct {
		typeName string
		nodeKey  typeNodeKey
	}
	order := []pairKey{}
	nodes := map[pairKey]*mangle.Node{}
	seen := map[pairKey]bool{}

	for _, k := range kinds {
		b, ok := buckets[k]
		if !ok {
			continue
		}
		for _, typeName := range b.nameOrder {
			if _, skip := excluding[typeName]; skip {
				continue
			}
			tnb := b.byTypeName[typeName]
			for _, key := range tnb.nodeOrder {
				pk := pairKey{typeName: typeName, nodeKey: key}
				if !seen[pk] {
					seen[pk] = true
					order = append(order, pk)
					nodes[pk] = tnb.nodes[key].node
				}
			}
		}
	}

	groups := make([]NodeGroup, 0, len(order))
	for _, pk := range order {
		g := NodeGroup{TypeNode: nodes[pk], TypeName: pk.typeName}
		for _, k := range kinds {
			b, ok := buckets[k]
			if !ok {
				g.ByKind = append(g.ByKind, KindBucket{Kind: k})
				continue
			}
			tnb, ok := b.byTypeName[pk.typeName]
			if !ok {
				g.ByKind = append(g.ByKind, KindBucket{Kind: k})
				continue
			}
			entry, ok := tnb.nodes[pk.nodeKey]
			if !ok {
				g.ByKind = append(g.ByKind, KindBucket{Kind: k})
				continue
			}
			for _, sym := range entry.symbols {
				sym.markConsumed()
			}
			g.ByKind = append(g.ByKind, KindBucket{Kind: k, Symbols: entry.symbols})
		}
		groups = append(groups, g)
	}
	return groups
}
