// Package symbolindex builds and serves the per-image Symbol Index: a
// demangling-aware, multi-axis queryable cache over every mangled symbol in
// a Mach-O image (SPEC_FULL.md §1.4 / §4.1).
package symbolindex

import (
	"sync"

	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
)

// GlobalKind classifies a root-global symbol that is not a member of any
// type.
type GlobalKind struct {
	IsFunction bool
	IsStorage  bool // only meaningful when !IsFunction
}

var (
	GlobalFunction = GlobalKind{IsFunction: true}
)

func globalVariable(isStorage bool) GlobalKind { return GlobalKind{IsStorage: isStorage} }

// MemberKind classifies a member symbol by {syntactic kind × static ×
// extension × storage}.
type MemberKind struct {
	Syntax      MemberSyntax
	InExtension bool
	IsStatic    bool
	IsStorage   bool // only meaningful when Syntax == MemberVariable
}

// MemberSyntax is the grammatical shape of a member.
type MemberSyntax int

const (
	MemberAllocator MemberSyntax = iota
	MemberDeallocator
	MemberConstructor
	MemberDestructor
	MemberSubscript
	MemberVariable
	MemberFunction
)

// TypeInfo records the kind of a nominal type discovered while classifying
// member symbols.
type TypeInfo struct {
	Name string
	Kind mangle.Kind // Enum, Structure, Class, Protocol, or TypeAlias
}

// IndexedSymbol wraps a raw Symbol with the demangled tree it produced and
// an observational "consumed" latch.
type IndexedSymbol struct {
	Symbol machoimage.Symbol
	Node   *mangle.Node

	mu       sync.Mutex
	consumed bool
}

// Consumed reports whether this symbol has been surfaced by any accessor.
func (s *IndexedSymbol) Consumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

// markConsumed latches Consumed() to true. Safe for concurrent use; has no
// effect on behavior, it is purely observational (SPEC_FULL.md §1.4).
func (s *IndexedSymbol) markConsumed() {
	s.mu.Lock()
	s.consumed = true
	s.mu.Unlock()
}

// typeNodeKey is the map key for a {typeName -> typeNode -> symbols} bucket:
// the type node's structural key, since two distinct-identity type nodes
// that are structurally equal must collide in the same bucket.
type typeNodeKey = string

// memberBucket is the {typeName: {typeNode: [symbols]}} shape shared by
// membersByKind, methodDescriptorMembers, and protocolWitnessMembers.
type memberBucket struct {
	byTypeName map[string]*typeNodeBucket
	nameOrder  []string
}

type typeNodeBucket struct {
	nodes     map[typeNodeKey]*nodeEntry
	nodeOrder []typeNodeKey
}

type nodeEntry struct {
	node    *mangle.Node
	symbols []*IndexedSymbol
}

func newMemberBucket() *memberBucket {
	return &memberBucket{byTypeName: map[string]*typeNodeBucket{}}
}

func (b *memberBucket) append(typeName string, typeNode *mangle.Node, sym *IndexedSymbol) {
	tnb, ok := b.byTypeName[typeName]
	if !ok {
		tnb = &typeNodeBucket{nodes: map[typeNodeKey]*nodeEntry{}}
		b.byTypeName[typeName] = tnb
		b.nameOrder = append(b.nameOrder, typeName)
	}

	key := typeNode.StructuralKey()
	entry, ok := tnb.nodes[key]
	if !ok {
		entry = &nodeEntry{node: typeNode}
		tnb.nodes[key] = entry
		tnb.nodeOrder = append(tnb.nodeOrder, key)
	}
	entry.symbols = append(entry.symbols, sym)
}

// Storage is the built, read-mostly Symbol Index for one image. Every
// consumer-visible map preserves insertion order.
type Storage struct {
	typeInfoByName map[string]TypeInfo
	typeNameOrder  []string

	globalsByKind map[GlobalKind][]*IndexedSymbol
	globalOrder   []GlobalKind

	opaqueTypeDescriptorByNode map[typeNodeKey]*opaqueEntry
	opaqueOrder                []typeNodeKey

	membersByKind            map[MemberKind]*memberBucket
	memberKindOrder          []MemberKind
	methodDescriptorMembers  map[MemberKind]*memberBucket
	methodDescriptorOrder    []MemberKind
	protocolWitnessMembers   map[MemberKind]*memberBucket
	protocolWitnessOrder     []MemberKind

	allByKind map[mangle.Kind][]*IndexedSymbol
	kindOrder []mangle.Kind

	symbolsByOffset       map[int][]machoimage.Symbol
	demangledNodeBySymbol map[symbolKey]*mangle.Node
	allSymbols            []*IndexedSymbol

	symbolByName    map[string]machoimage.Symbol
	symbolNameOrder []string
}

type opaqueEntry struct {
	node *mangle.Node
	sym  *IndexedSymbol
}

// symbolKey identifies a Symbol for map-keying purposes (offset+name,
// since offset alone is not unique across the sliding/shared-cache forms).
type symbolKey struct {
	Offset int
	Name   string
}

func keyOf(s machoimage.Symbol) symbolKey { return symbolKey{Offset: s.Offset, Name: s.Name} }

func newStorage() *Storage {
	return &Storage{
		typeInfoByName:             map[string]TypeInfo{},
		globalsByKind:              map[GlobalKind][]*IndexedSymbol{},
		opaqueTypeDescriptorByNode: map[typeNodeKey]*opaqueEntry{},
		membersByKind:              map[MemberKind]*memberBucket{},
		methodDescriptorMembers:    map[MemberKind]*memberBucket{},
		protocolWitnessMembers:     map[MemberKind]*memberBucket{},
		allByKind:                  map[mangle.Kind][]*IndexedSymbol{},
		symbolsByOffset:            map[int][]machoimage.Symbol{},
		demangledNodeBySymbol:      map[symbolKey]*mangle.Node{},
		symbolByName:               map[string]machoimage.Symbol{},
	}
}
