// Package metadata extracts the four families of reflective records the
// Interface Indexer consumes — type context descriptors, protocol
// descriptors, protocol conformances, and associated types — from an
// image's metadata sections.
//
// Decoding the on-disk context-descriptor layout itself is delegated to
// github.com/blacktop/go-macho's Swift metadata reader
// (types/swift.Type / .Protocol / .ConformanceDescriptor / ...); this
// package only reshapes that into the record shape the Indexer phases in
// SPEC_FULL.md §1.4 are written against, and demangles the mangled
// cross-references (extended-context names, generic signatures) those
// records carry.
package metadata

import "github.com/swiftface/swiftface/internal/mangle"

// ContextRef names where a context descriptor sits in the image: either
// nested in a known/unknown type, inside an extension, or anchored by a
// plain symbol (used when the binary has stripped the structural parent
// chain down to a single offset).
type ContextRefKind int

const (
	ContextRefNone ContextRefKind = iota
	ContextRefType
	ContextRefExtension
	ContextRefSymbol
)

// ContextRef is the resolved immediate parent of a context descriptor.
type ContextRef struct {
	Kind ContextRefKind

	TypeName string // set when Kind == ContextRefType
	Offset   int    // set when Kind == ContextRefType (descriptor offset, for map lookups) or ContextRefSymbol

	Extension *ExtensionContext // set when Kind == ContextRefExtension
	Symbol    string            // set when Kind == ContextRefSymbol
}

// ExtensionContext is the demangled identity of an `extension` context
// descriptor: the node naming the type/protocol/type-alias being extended,
// plus an optional generic signature.
type ExtensionContext struct {
	ExtendedTypeName string
	ExtendedNode     *mangle.Node
	GenericSignature *mangle.Node // nil if the extension is non-generic
}

// TypeRecord is one entry of the __swift5_types section.
type TypeRecord struct {
	Offset       int
	TypeName     string
	Kind         mangle.Kind // one of Enum, Structure, Class, TypeAlias
	IsCImported  bool
	Parent       ContextRef
	FieldOffsets []int32
}

// ProtocolRecord is one entry of the __swift5_protos section.
type ProtocolRecord struct {
	Offset   int
	Name     string
	Parent   ContextRef
	Requires []string // mangled associated-type / requirement names, informational
}

// ProtocolConformanceRecord is one entry of the __swift5_proto section.
type ProtocolConformanceRecord struct {
	Offset                   int
	TypeName                 string
	ProtocolName             string
	ConditionalRequirements  *mangle.Node // derives the conformance extension's generic signature
	ResilientWitnesses       []ResilientWitness
}

// ResilientWitness is a single indirectly-resolved conformance witness.
type ResilientWitness struct {
	RequirementName       string
	ImplementationSymbol  string // empty if unresolved at link time
	DefaultImplementation string // requirement's default implementation symbol, if any
}

// AssociatedTypeRecord is one entry of the __swift5_assocty section.
type AssociatedTypeRecord struct {
	Offset        int
	TypeName      string
	ProtocolName  string
	AssociatedName string
	SubstitutedTypeName string
}
