// Package definition holds the indexed declaration graph — TypeDefinition,
// ProtocolDefinition, ExtensionDefinition — that the Interface Indexer
// builds and the Printer renders (SPEC_FULL.md §1.3 / §1.4).
package definition

import (
	"sync"

	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/metadata"
)

// ParentContextKind names which of the three mutually-exclusive parent
// forms a non-root definition carries.
type ParentContextKind int

const (
	ParentContextNone ParentContextKind = iota
	ParentContextExtension
	ParentContextType
	ParentContextSymbol
)

// ParentContext is the resolved, non-owning reference to a definition's
// structural parent when that parent is not itself an indexed
// TypeDefinition (spec.md §4.1 phase 1 step 3).
type ParentContext struct {
	Kind      ParentContextKind
	Extension string // extension's resolved target name, when Kind == Extension
	TypeName  string // when Kind == Type (parent not yet in the working map)
	Symbol    string // when Kind == Symbol
}

// Accessor is one symbol implementing a getter/setter/modify/read for a
// variable or subscript.
type Accessor struct {
	Kind             mangle.Kind // Getter, Setter, ModifyAccessor, ReadAccessor
	Symbol           string
	Offset           int
	MethodDescriptor *string // set when a matching method-descriptor symbol was resolved
}

// FieldDefinition is one stored-property entry from a type's field
// descriptor.
type FieldDefinition struct {
	Name            string
	MangledType     string
	IsLazy          bool
	IsWeak          bool
	IsVariable      bool
	IsIndirectCase  bool
}

// VariableDefinition is one computed or stored property.
type VariableDefinition struct {
	Name          string
	Node          *mangle.Node
	Accessors     []Accessor
	IsStatic      bool
	IsGlobalOrStatic bool
}

// SubscriptDefinition is one subscript member.
type SubscriptDefinition struct {
	Node      *mangle.Node
	Accessors []Accessor
	IsStatic  bool
}

// FunctionDefinition is one allocator, constructor, or ordinary function
// member.
type FunctionDefinition struct {
	Name             string
	Symbol           string
	Offset           int
	Kind             mangle.Kind // Allocator, Constructor, or Function
	IsStatic         bool
	IsGlobalOrStatic bool
	MethodDescriptor *string
}

// members is the set of classified member lists every nominal owner
// (TypeDefinition or ProtocolDefinition) carries.
type members struct {
	Variables       []VariableDefinition
	StaticVariables []VariableDefinition
	Functions       []FunctionDefinition
	StaticFunctions []FunctionDefinition
	Subscripts      []SubscriptDefinition
	StaticSubscripts []SubscriptDefinition
	Allocators      []FunctionDefinition
	Constructors    []FunctionDefinition
}

// TypeDefinition owns one type context descriptor and its indexed members.
type TypeDefinition struct {
	Type     metadata.TypeRecord
	TypeName string

	Parent        *TypeDefinition // weak: set only during Phase 1 linking
	ParentContext *ParentContext  // exactly one of Parent/ParentContext is non-nil on a non-root definition

	TypeChildren     []*TypeDefinition
	ProtocolChildren []*ProtocolDefinition

	Fields          []FieldDefinition
	HasDeallocator  bool
	HasDestructor   bool

	methodDescriptorLookup map[string]string // implementation symbol's demangled-node structural key -> that implementation symbol

	members

	mu        sync.Mutex
	isIndexed bool
}

// ProtocolDefinition owns one protocol descriptor and its indexed members.
type ProtocolDefinition struct {
	Protocol metadata.ProtocolRecord
	Name     string

	Parent           *TypeDefinition
	ExtensionContext *ParentContext

	members

	mu        sync.Mutex
	isIndexed bool
}

// ExtensionKind names what an ExtensionDefinition's key targets.
type ExtensionKind int

const (
	ExtensionOfType ExtensionKind = iota
	ExtensionOfProtocol
	ExtensionOfTypeAlias
)

// ExtensionDefinition is a synthesized entity for members (or nested
// types/protocols) whose owner is a separately-described extension rather
// than the primary declaration.
type ExtensionDefinition struct {
	ExtensionName    string // the extended type's printed name
	ExtensionKind    ExtensionKind
	TargetNode       *mangle.Node
	GenericSignature *mangle.Node

	ProtocolConformance *metadata.ProtocolConformanceRecord
	AssociatedType      *metadata.AssociatedTypeRecord

	Types     []*TypeDefinition
	Protocols []*ProtocolDefinition

	members

	MissingSymbolWitnesses []MissingWitness

	mu        sync.Mutex
	isIndexed bool
}

// MissingWitness records a resilient conformance witness whose
// implementation symbol could not be located by any resolution strategy.
type MissingWitness struct {
	RequirementName string
	Reason          string
	SuggestedName   string // nearest known type name by edit distance, if any
}

// Key returns the (typeNode, extensionKind) identity spec.md §9's GLOSSARY
// calls the "Extension name": the key that unifies all extensions of the
// same target across generic/non-generic, storage/computed axes.
func (e *ExtensionDefinition) Key() string {
	nodeKey := ""
	if e.TargetNode != nil {
		nodeKey = e.TargetNode.StructuralKey()
	}
	kindTag := [...]string{"type", "protocol", "typeAlias"}[e.ExtensionKind]
	return kindTag + ":" + e.ExtensionName + ":" + nodeKey
}
