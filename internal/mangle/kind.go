// Package mangle demangles the mangled symbol names emitted by the
// language's reflective metadata and exposes the result as an immutable,
// structurally-comparable node tree.
//
// This package plays the role of the "demangler" external collaborator
// named in the interface-indexing design: a production build would swap
// this for a complete implementation of the mangling grammar. What is here
// is a best-effort reader over the grammar subset the rest of the pipeline
// actually switches on (see Kind).
package mangle

// Kind identifies the grammatical role of a Node. The set mirrors the
// fixed enumeration the Symbol Index and Interface Indexer switch on; it is
// not the full grammar of the language's mangling scheme.
type Kind int

const (
	KindInvalid Kind = iota
	KindGlobal
	KindFunction
	KindVariable
	KindSubscript
	KindAllocator
	KindDeallocator
	KindConstructor
	KindDestructor
	KindGetter
	KindSetter
	KindModifyAccessor
	KindReadAccessor
	KindStatic
	KindExtension
	KindModule
	KindProtocol
	KindEnum
	KindStructure
	KindClass
	KindTypeAlias
	KindMethodDescriptor
	KindProtocolWitness
	KindProtocolConformance
	KindMergedFunction
	KindOpaqueTypeDescriptor
	KindOpaqueReturnTypeOf
	KindType
	KindDependentGenericSignature
	KindRequirementKinds
	KindLabelList
	KindIdentifier
	KindPrivateDeclName
	KindPrefixOperator
	KindInfixOperator
	KindPostfixOperator
	KindWeak
)

//go:generate stringer -type=Kind -output=kind_string.go

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var kindNames = map[Kind]string{
	KindInvalid:                   "invalid",
	KindGlobal:                    "global",
	KindFunction:                  "function",
	KindVariable:                  "variable",
	KindSubscript:                 "subscript",
	KindAllocator:                 "allocator",
	KindDeallocator:               "deallocator",
	KindConstructor:               "constructor",
	KindDestructor:                "destructor",
	KindGetter:                    "getter",
	KindSetter:                    "setter",
	KindModifyAccessor:            "modifyAccessor",
	KindReadAccessor:              "readAccessor",
	KindStatic:                    "static",
	KindExtension:                 "extension",
	KindModule:                    "module",
	KindProtocol:                  "protocol",
	KindEnum:                      "enum",
	KindStructure:                 "structure",
	KindClass:                     "class",
	KindTypeAlias:                 "typeAlias",
	KindMethodDescriptor:          "methodDescriptor",
	KindProtocolWitness:           "protocolWitness",
	KindProtocolConformance:       "protocolConformance",
	KindMergedFunction:            "mergedFunction",
	KindOpaqueTypeDescriptor:      "opaqueTypeDescriptor",
	KindOpaqueReturnTypeOf:        "opaqueReturnTypeOf",
	KindType:                      "type",
	KindDependentGenericSignature: "dependentGenericSignature",
	KindRequirementKinds:          "requirementKinds",
	KindLabelList:                "labelList",
	KindIdentifier:                "identifier",
	KindPrivateDeclName:           "privateDeclName",
	KindPrefixOperator:            "prefixOperator",
	KindInfixOperator:             "infixOperator",
	KindPostfixOperator:           "postfixOperator",
	KindWeak:                      "weak",
}

// IsNominalType reports whether k names one of the declaration kinds that
// can own members: enum, struct, class, protocol, or type alias.
func (k Kind) IsNominalType() bool {
	switch k {
	case KindEnum, KindStructure, KindClass, KindProtocol, KindTypeAlias:
		return true
	default:
		return false
	}
}

// IsMember reports whether k is one of the payload kinds a member symbol's
// outer wrappers can eventually unwrap to.
func (k Kind) IsMember() bool {
	switch k {
	case KindAllocator, KindDeallocator, KindConstructor, KindDestructor,
		KindSubscript, KindVariable, KindFunction, KindGetter, KindSetter,
		KindModifyAccessor, KindReadAccessor:
		return true
	default:
		return false
	}
}
