package metadata

import (
	"fmt"

	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
)

// GoMachODecoder decodes the four Swift metadata section families using
// github.com/blacktop/go-macho's own Swift reflection reader
// (types/swift.Type, .Protocol, .ConformanceDescriptor,
// .AssociatedTypeDescriptor), reshaping its output into this package's
// record types.
type GoMachODecoder struct{}

func (GoMachODecoder) DecodeTypes(img *machoimage.Image) ([]TypeRecord, error) {
	raw, err := img.Raw().GetSwiftTypes()
	if err != nil {
		return nil, fmt.Errorf("decode __swift5_types: %w", err)
	}

	records := make([]TypeRecord, 0, len(raw))
	for _, t := range raw {
		records = append(records, TypeRecord{
			Offset:       int(t.Address),
			TypeName:     t.Name,
			Kind:         contextDescriptorKindToMangleKind(t.Kind),
			IsCImported:  t.IsCImportedModuleName(),
			Parent:       parentContextRef(asGoMachoParent(t.Parent)),
			FieldOffsets: t.FieldOffsets,
		})
	}
	return records, nil
}

func (GoMachODecoder) DecodeProtocols(img *machoimage.Image) ([]ProtocolRecord, error) {
	raw, err := img.Raw().GetSwiftProtocols()
	if err != nil {
		return nil, fmt.Errorf("decode __swift5_protos: %w", err)
	}

	records := make([]ProtocolRecord, 0, len(raw))
	for _, p := range raw {
		records = append(records, ProtocolRecord{
			Offset: int(p.Address),
			Name:   p.Name,
			Parent: parentContextRef(asGoMachoParent(p.Parent)),
		})
	}
	return records, nil
}

func (GoMachODecoder) DecodeConformances(img *machoimage.Image) ([]ProtocolConformanceRecord, error) {
	raw, err := img.Raw().GetSwiftProtocolConformances()
	if err != nil {
		return nil, fmt.Errorf("decode __swift5_proto: %w", err)
	}

	records := make([]ProtocolConformanceRecord, 0, len(raw))
	for _, c := range raw {
		var sig *mangle.Node
		if c.ConditionalRequirementsMangled != "" {
			sig, _ = mangle.Demangle(c.ConditionalRequirementsMangled)
		}

		var witnesses []ResilientWitness
		for _, w := range c.ResilientWitnesses {
			witnesses = append(witnesses, ResilientWitness{
				RequirementName:       w.RequirementSymbolName,
				ImplementationSymbol:  w.ImplSymbolName,
				DefaultImplementation: w.DefaultImplSymbolName,
			})
		}

		records = append(records, ProtocolConformanceRecord{
			Offset:                  int(c.Address),
			TypeName:                c.TypeName,
			ProtocolName:            c.ProtocolName,
			ConditionalRequirements: sig,
			ResilientWitnesses:      witnesses,
		})
	}
	return records, nil
}

func (GoMachODecoder) DecodeAssociatedTypes(img *machoimage.Image) ([]AssociatedTypeRecord, error) {
	raw, err := img.Raw().GetSwiftAssociatedTypes()
	if err != nil {
		return nil, fmt.Errorf("decode __swift5_assocty: %w", err)
	}

	records := make([]AssociatedTypeRecord, 0, len(raw))
	for _, a := range raw {
		records = append(records, AssociatedTypeRecord{
			Offset:              int(a.Address),
			TypeName:            a.ConformingTypeName,
			ProtocolName:        a.ProtocolTypeName,
			AssociatedName:      a.Name,
			SubstitutedTypeName: a.SubstitutedTypeName,
		})
	}
	return records, nil
}

func (GoMachODecoder) DecodeFields(img *machoimage.Image, typeOffset int) ([]FieldRecord, error) {
	raw, err := img.Raw().GetSwiftFields(uint64(typeOffset))
	if err != nil {
		return nil, fmt.Errorf("decode field descriptor at %#x: %w", typeOffset, err)
	}

	records := make([]FieldRecord, 0, len(raw))
	for _, f := range raw {
		records = append(records, FieldRecord{
			Name:           f.Name,
			MangledType:    f.MangledTypeName,
			IsVariable:     f.IsVar,
			IsIndirectCase: f.IsIndirectCase,
		})
	}
	return records, nil
}

func (GoMachODecoder) DecodeMethodDescriptors(img *machoimage.Image, typeOffset int) ([]MethodDescriptorRecord, error) {
	raw, err := img.Raw().GetSwiftMethodDescriptors(uint64(typeOffset))
	if err != nil {
		return nil, fmt.Errorf("decode method descriptors at %#x: %w", typeOffset, err)
	}

	records := make([]MethodDescriptorRecord, 0, len(raw))
	for _, m := range raw {
		records = append(records, MethodDescriptorRecord{
			Offset:               int(m.Address),
			ImplementationSymbol: m.ImplSymbolName,
			IsOverride:           m.IsOverride,
			IsDefaultOverride:    m.IsDefaultOverride,
		})
	}
	return records, nil
}

// contextDescriptorKindToMangleKind maps go-macho's
// swift.ContextDescriptorKind values onto the subset of mangle.Kind the
// Indexer switches on.
func contextDescriptorKindToMangleKind(k uint8) mangle.Kind {
	switch k {
	case cdKindClass:
		return mangle.KindClass
	case cdKindStruct:
		return mangle.KindStructure
	case cdKindEnum:
		return mangle.KindEnum
	case cdKindProtocol:
		return mangle.KindProtocol
	default:
		return mangle.KindTypeAlias
	}
}

// Numeric values mirrored from go-macho's swift.ContextDescriptorKind
// (CDKindModule, CDKindExtension, CDKindProtocol, CDKindClass, CDKindStruct,
// CDKindEnum), kept local so this package doesn't need to import the
// types/swift package just for six constants.
const (
	cdKindModule    = 0
	cdKindExtension = 1
	cdKindProtocol  = 3
	cdKindClass     = 16
	cdKindStruct    = 17
	cdKindEnum      = 18
)

// goMachoParent is the subset of go-macho's TargetModuleContext we rely on:
// every context descriptor's immediate parent carries at least a kind and a
// name (a module name, a nominal type's printed name, an extension's
// mangled extended-type name, or a bare symbol name for a stripped chain).
type goMachoParent struct {
	Kind uint8
	Name string
}

// asGoMachoParent adapts go-macho's *swift.TargetModuleContext — which
// carries the same Kind/Name fields as swift.Type itself (see that type's
// dump() method, which prints t.Parent.Name directly) — to goMachoParent.
func asGoMachoParent(parent *swiftTargetModuleContext) *goMachoParent {
	if parent == nil {
		return nil
	}
	return &goMachoParent{Kind: uint8(parent.Kind), Name: parent.Name}
}

// swiftTargetModuleContext mirrors the fields of go-macho's
// swift.TargetModuleContext that this package reads.
type swiftTargetModuleContext struct {
	Kind uint8
	Name string
}

func parentContextRef(parent *goMachoParent) ContextRef {
	if parent == nil {
		return ContextRef{Kind: ContextRefNone}
	}
	switch parent.Kind {
	case cdKindClass, cdKindStruct, cdKindEnum, cdKindProtocol:
		return ContextRef{Kind: ContextRefType, TypeName: parent.Name}
	case cdKindExtension:
		node, _ := mangle.Demangle(parent.Name)
		return ContextRef{Kind: ContextRefExtension, Extension: &ExtensionContext{ExtendedTypeName: parent.Name, ExtendedNode: node}}
	case cdKindModule:
		return ContextRef{Kind: ContextRefNone}
	default:
		return ContextRef{Kind: ContextRefNone}
	}
}
