package printer

import (
	"fmt"
	"strings"

	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/mangle"
)

// moduleSource is the subset of interfaceindexer.Indexer the Printer walks.
// Declared as an interface here (rather than importing interfaceindexer
// directly) so a golden-file test can drive the Printer off a hand-built
// fixture without constructing a real Indexer.
type moduleSource interface {
	RootTypeDefinitions() []*definition.TypeDefinition
	RootProtocolDefinitions() []*definition.ProtocolDefinition
	TypeExtensionDefinitions() []*definition.ExtensionDefinition
	GlobalVariableDefinitions() []definition.VariableDefinition
	GlobalFunctionDefinitions() []definition.FunctionDefinition
}

// Print renders every root type, root protocol, extension, and global in
// src, in that order, each section in src's own insertion order.
func (p *Printer) Print(src moduleSource) []Chunk {
	b := &builder{}

	for _, td := range src.RootTypeDefinitions() {
		p.printType(b, td, 0)
	}
	for _, pd := range src.RootProtocolDefinitions() {
		p.printProtocol(b, pd, 0)
	}
	for _, ext := range src.TypeExtensionDefinitions() {
		p.printExtension(b, ext)
	}
	p.printGlobals(b, src.GlobalVariableDefinitions(), src.GlobalFunctionDefinitions())

	return b.chunkSlice()
}

func indent(depth int) string { return strings.Repeat("    ", depth) }

func keywordForKind(k mangle.Kind) string {
	switch k {
	case mangle.KindEnum:
		return "enum"
	case mangle.KindStructure:
		return "struct"
	case mangle.KindClass:
		return "class"
	case mangle.KindProtocol:
		return "protocol"
	case mangle.KindTypeAlias:
		return "typealias"
	default:
		return "type"
	}
}

// lastComponent returns the final '.'-separated segment of a dotted type
// name, used once a declaration is nested inside the brace that already
// establishes its context.
func lastComponent(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (p *Printer) displayName(fullName string, depth int) string {
	if depth == 0 {
		return fullName
	}
	return lastComponent(fullName)
}

func (p *Printer) printType(b *builder, td *definition.TypeDefinition, depth int) {
	if err := td.Index(p.storage, p.reader, p.img); err != nil {
		b.emit(indent(depth), SemanticPlain)
		b.emit(fmt.Sprintf("// failed to index %s: %v\n", td.TypeName, err), SemanticComment)
		return
	}

	b.emit(indent(depth), SemanticPlain)
	b.emit(keywordForKind(td.Type.Kind)+" ", SemanticKeyword)
	b.emit(p.displayName(td.TypeName, depth), SemanticTypeName)
	if p.opts.EmitOffsetComments {
		b.emit(fmt.Sprintf(" // offset 0x%x", td.Type.Offset), SemanticComment)
	}
	b.emit(" {\n", SemanticPunctuation)

	p.printFields(b, td, depth+1)
	p.printMembers(b, depth+1, td.Allocators, td.Constructors, td.Variables, td.StaticVariables,
		td.Functions, td.StaticFunctions, td.Subscripts, td.StaticSubscripts)

	if td.HasDeallocator {
		b.emit(indent(depth+1), SemanticPlain)
		b.emit("deinit", SemanticKeyword)
		b.emit(" {}\n", SemanticPunctuation)
	}

	for _, child := range td.TypeChildren {
		p.printType(b, child, depth+1)
	}
	for _, child := range td.ProtocolChildren {
		p.printProtocol(b, child, depth+1)
	}

	b.emit(indent(depth), SemanticPlain)
	b.emit("}\n", SemanticPunctuation)
}

func (p *Printer) printFields(b *builder, td *definition.TypeDefinition, depth int) {
	layoutOn := (td.Type.Kind == mangle.KindEnum && p.opts.PrintEnumLayout) ||
		(td.Type.Kind != mangle.KindEnum && p.opts.PrintTypeLayout)

	for i, f := range td.Fields {
		b.emit(indent(depth), SemanticPlain)
		switch {
		case f.IsIndirectCase:
			b.emit("indirect case ", SemanticKeyword)
		case f.IsVariable:
			b.emit("var ", SemanticKeyword)
		default:
			b.emit("let ", SemanticKeyword)
		}
		b.emit(f.Name, SemanticIdentifier)
		b.emit(": ", SemanticPunctuation)
		b.emit(f.MangledType, SemanticTypeName)
		if f.IsWeak {
			b.emit(" weak", SemanticComment)
		}
		if f.IsLazy {
			b.emit(" lazy", SemanticComment)
		}
		if layoutOn && i < len(td.Type.FieldOffsets) {
			b.emit(fmt.Sprintf(" // +%d", td.Type.FieldOffsets[i]), SemanticComment)
		}
		b.emit("\n", SemanticPunctuation)
	}
}

func (p *Printer) printMembers(b *builder, depth int,
	allocators, constructors []definition.FunctionDefinition,
	variables, staticVariables []definition.VariableDefinition,
	functions, staticFunctions []definition.FunctionDefinition,
	subscripts, staticSubscripts []definition.SubscriptDefinition) {

	for _, v := range staticVariables {
		p.printVariable(b, depth, v, true)
	}
	for _, v := range variables {
		p.printVariable(b, depth, v, false)
	}
	for _, s := range staticSubscripts {
		p.printSubscript(b, depth, s)
	}
	for _, s := range subscripts {
		p.printSubscript(b, depth, s)
	}
	for _, f := range constructors {
		p.printFunction(b, depth, f, "init")
	}
	for _, f := range allocators {
		p.printFunction(b, depth, f, "init")
	}
	for _, f := range staticFunctions {
		p.printFunction(b, depth, f, "func")
	}
	for _, f := range functions {
		p.printFunction(b, depth, f, "func")
	}
}

func (p *Printer) printVariable(b *builder, depth int, v definition.VariableDefinition, static bool) {
	b.emit(indent(depth), SemanticPlain)
	if static {
		b.emit("static ", SemanticKeyword)
	}
	b.emit("var ", SemanticKeyword)
	b.emit(v.Name, SemanticIdentifier)
	p.printAccessors(b, v.Accessors)
	b.emit("\n", SemanticPunctuation)
}

func (p *Printer) printSubscript(b *builder, depth int, s definition.SubscriptDefinition) {
	b.emit(indent(depth), SemanticPlain)
	if s.IsStatic {
		b.emit("static ", SemanticKeyword)
	}
	b.emit("subscript", SemanticKeyword)
	p.printAccessors(b, s.Accessors)
	b.emit("\n", SemanticPunctuation)
}

func (p *Printer) printAccessors(b *builder, accessors []definition.Accessor) {
	if len(accessors) == 0 {
		return
	}
	b.emit(" { ", SemanticPunctuation)
	for i, a := range accessors {
		if i > 0 {
			b.emit(" ", SemanticPlain)
		}
		b.emit(accessorKeyword(a.Kind), SemanticKeyword)
		if p.opts.EmitOffsetComments {
			b.emit(fmt.Sprintf(" // %s @ 0x%x", a.Symbol, a.Offset), SemanticComment)
		}
	}
	b.emit(" }", SemanticPunctuation)
}

func accessorKeyword(k mangle.Kind) string {
	switch k {
	case mangle.KindGetter:
		return "get"
	case mangle.KindSetter:
		return "set"
	case mangle.KindModifyAccessor:
		return "_modify"
	case mangle.KindReadAccessor:
		return "_read"
	default:
		return "get"
	}
}

func (p *Printer) printFunction(b *builder, depth int, f definition.FunctionDefinition, keyword string) {
	b.emit(indent(depth), SemanticPlain)
	if f.IsStatic {
		b.emit("static ", SemanticKeyword)
	}
	b.emit(keyword+" ", SemanticKeyword)
	name := f.Name
	if name == "" {
		name = keyword
	}
	b.emit(name, SemanticIdentifier)
	b.emit("()", SemanticPunctuation)
	if p.opts.EmitOffsetComments {
		b.emit(fmt.Sprintf(" // %s @ 0x%x", f.Symbol, f.Offset), SemanticComment)
	}
	if f.MethodDescriptor != nil && p.opts.PrintStrippedSymbolicItem {
		b.emit(fmt.Sprintf(" // vtable: %s", *f.MethodDescriptor), SemanticComment)
	}
	b.emit("\n", SemanticPunctuation)
}

func (p *Printer) printProtocol(b *builder, pd *definition.ProtocolDefinition, depth int) {
	b.emit(indent(depth), SemanticPlain)
	b.emit("protocol ", SemanticKeyword)
	b.emit(p.displayName(pd.Name, depth), SemanticTypeName)
	if p.opts.EmitOffsetComments {
		b.emit(fmt.Sprintf(" // offset 0x%x", pd.Protocol.Offset), SemanticComment)
	}
	b.emit(" {\n", SemanticPunctuation)

	for _, req := range pd.Protocol.Requires {
		b.emit(indent(depth+1), SemanticPlain)
		b.emit(renderRequirement(req), SemanticIdentifier)
		b.emit("\n", SemanticPunctuation)
	}

	b.emit(indent(depth), SemanticPlain)
	b.emit("}\n", SemanticPunctuation)
}

// renderRequirement demangles a protocol's raw requirement name on a
// best-effort basis; Requires is informational only (spec.md §3), so a
// failed demangle just falls back to the raw mangled text.
func renderRequirement(mangled string) string {
	n, err := mangle.Demangle(mangled)
	if err != nil {
		return mangled
	}
	return n.Print(mangle.InterfaceTypeBuilderOnly)
}

func (p *Printer) printExtension(b *builder, ext *definition.ExtensionDefinition) {
	ext.Index(p.storage)

	b.emit("extension ", SemanticKeyword)
	b.emit(ext.ExtensionName, SemanticTypeName)

	if ext.ProtocolConformance != nil {
		b.emit(": ", SemanticPunctuation)
		b.emit(ext.ProtocolConformance.ProtocolName, SemanticTypeName)
	}
	if ext.GenericSignature != nil {
		b.emit(" where ", SemanticKeyword)
		b.emit(p.printedName(ext.GenericSignature), SemanticTypeName)
	}
	b.emit(" {\n", SemanticPunctuation)

	p.printMembers(b, 1, ext.Allocators, ext.Constructors, ext.Variables, ext.StaticVariables,
		ext.Functions, ext.StaticFunctions, ext.Subscripts, ext.StaticSubscripts)

	for _, w := range ext.MissingSymbolWitnesses {
		b.emit(indent(1), SemanticPlain)
		suggestion := ""
		if w.SuggestedName != "" {
			suggestion = fmt.Sprintf(" (did you mean %s?)", w.SuggestedName)
		}
		b.emit(fmt.Sprintf("// missing witness for %s: %s%s\n", w.RequirementName, w.Reason, suggestion), SemanticComment)
	}

	for _, child := range ext.Types {
		p.printType(b, child, 1)
	}
	for _, child := range ext.Protocols {
		p.printProtocol(b, child, 1)
	}

	b.emit("}\n", SemanticPunctuation)
}

func (p *Printer) printGlobals(b *builder, vars []definition.VariableDefinition, fns []definition.FunctionDefinition) {
	for _, v := range vars {
		b.emit("var ", SemanticKeyword)
		b.emit(v.Name, SemanticIdentifier)
		p.printAccessors(b, v.Accessors)
		b.emit("\n", SemanticPunctuation)
	}
	for _, f := range fns {
		p.printFunction(b, 0, f, "func")
	}
}
