package definition

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/metadata"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// MemberKindGroup is the eight-bucket query shape both TypeDefinition.Index
// (inExtension=false) and the Interface Indexer's extension phase
// (inExtension=true) read from the Symbol Index: allocator, variable
// (non-storage, static×storage axes), function (×static), subscript
// (×static).
func MemberKindGroup(inExtension bool) []symbolindex.MemberKind {
	return []symbolindex.MemberKind{
		{Syntax: symbolindex.MemberAllocator, InExtension: inExtension},
		{Syntax: symbolindex.MemberVariable, InExtension: inExtension},
		{Syntax: symbolindex.MemberVariable, InExtension: inExtension, IsStatic: true, IsStorage: true},
		{Syntax: symbolindex.MemberVariable, InExtension: inExtension, IsStatic: true},
		{Syntax: symbolindex.MemberFunction, InExtension: inExtension},
		{Syntax: symbolindex.MemberFunction, InExtension: inExtension, IsStatic: true},
		{Syntax: symbolindex.MemberSubscript, InExtension: inExtension},
		{Syntax: symbolindex.MemberSubscript, InExtension: inExtension, IsStatic: true},
	}
}

// Index performs TypeDefinition's lazy, on-demand field/member/method
// descriptor resolution (spec.md §4.4). Idempotent: the work happens
// exactly once no matter how many callers invoke it concurrently.
func (t *TypeDefinition) Index(storage *symbolindex.Storage, reader *metadata.Reader, img *machoimage.Image) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isIndexed {
		return nil
	}
	defer func() { t.isIndexed = true }()

	if err := t.indexFields(reader, img); err != nil {
		return err
	}

	if t.Type.Kind == mangle.KindClass {
		t.indexMethodDescriptors(reader, img)
	}

	t.indexMembers(storage)

	t.HasDeallocator = len(storage.MemberSymbolsForType(symbolindex.QueryMembers, t.TypeName,
		symbolindex.MemberKind{Syntax: symbolindex.MemberDeallocator})) > 0

	return nil
}

func (t *TypeDefinition) indexFields(reader *metadata.Reader, img *machoimage.Image) error {
	records, err := reader.Fields(img, t.Type.Offset)
	if err != nil {
		return err
	}

	fields := make([]FieldDefinition, 0, len(records))
	for _, r := range records {
		name, isLazy := stripLazyStoragePrefix(r.Name)
		typeNode, _ := mangle.Demangle(r.MangledType)
		fields = append(fields, FieldDefinition{
			Name:           name,
			MangledType:    r.MangledType,
			IsLazy:         isLazy,
			IsWeak:         typeNode.ContainsKind(mangle.KindWeak),
			IsVariable:     r.IsVariable,
			IsIndirectCase: r.IsIndirectCase,
		})
	}
	t.Fields = fields
	return nil
}

// indexMethodDescriptors resolves the method descriptor, override, and
// default-override tables: each implementation symbol whose demangled
// protocol-conformance child prints (interface-type-builder-only) as this
// class's TypeName contributes a lookup entry keyed by the structural key of
// the implementation symbol's own demangled node; an already-visited node is
// skipped.
func (t *TypeDefinition) indexMethodDescriptors(reader *metadata.Reader, img *machoimage.Image) {
	records, err := reader.MethodDescriptors(img, t.Type.Offset)
	if err != nil {
		return
	}

	lookup := map[string]string{}
	visited := map[string]bool{}

	for _, r := range records {
		if r.ImplementationSymbol == "" {
			continue
		}
		node, err := mangle.Demangle(r.ImplementationSymbol)
		if err != nil {
			continue
		}
		conf := node.DescendantOfKind(mangle.KindProtocolConformance)
		if conf == nil {
			continue
		}
		target := conf.FirstChild()
		if target == nil {
			continue
		}
		key := node.StructuralKey()
		if visited[key] {
			continue
		}
		visited[key] = true
		if target.Print(mangle.InterfaceTypeBuilderOnly) != t.TypeName {
			continue
		}
		lookup[key] = r.ImplementationSymbol
	}
	t.methodDescriptorLookup = lookup
}

// indexMembers queries the eight non-extension member buckets and routes
// each through the matching Definition Builder, propagating
// methodDescriptorLookup into resolved accessors.
func (t *TypeDefinition) indexMembers(storage *symbolindex.Storage) {
	buckets := storage.MemberSymbolsByKindMap(symbolindex.QueryMembers, t.TypeName, MemberKindGroup(false)...)
	fieldNames := map[string]bool{}
	for _, f := range t.Fields {
		fieldNames[f.Name] = true
	}

	populateMembers(&t.members, buckets, t.methodDescriptorLookup, fieldNames)
}

// PopulateMembers routes each requested kind's member symbols through the
// matching Definition Builder into e's member lists. Exported for the
// Interface Indexer's extension phase, which queries
// symbolindex.MemberSymbolsByNodeMap directly rather than going through a
// TypeDefinition.
func (e *ExtensionDefinition) PopulateMembers(buckets []symbolindex.KindBucket) {
	populateMembers(&e.members, buckets, nil, nil)
}

// populateMembers routes each kind bucket through the matching Definition
// Builder, appending into m. methodDescriptorLookup and fieldNames may be
// nil (ExtensionDefinition members never carry method descriptors or known
// field names to filter against).
func populateMembers(m *members, buckets []symbolindex.KindBucket, methodDescriptorLookup map[string]string, fieldNames map[string]bool) {
	withMethodDescriptor := func(candidates []Candidate) []Candidate {
		if len(methodDescriptorLookup) == 0 {
			return candidates
		}
		for i := range candidates {
			if sym, ok := methodDescriptorLookup[candidates[i].Node.StructuralKey()]; ok {
				s := sym
				candidates[i].MethodDescriptor = &s
			}
		}
		return candidates
	}

	for _, kb := range buckets {
		switch kb.Kind.Syntax {
		case symbolindex.MemberAllocator:
			m.Allocators = append(m.Allocators, BuildAllocators(withMethodDescriptor(candidatesOf(kb.Symbols, false)))...)
		case symbolindex.MemberVariable:
			vars := BuildVariables(withMethodDescriptor(candidatesOf(kb.Symbols, kb.Kind.IsStatic)), fieldNames)
			if kb.Kind.IsStatic {
				m.StaticVariables = append(m.StaticVariables, vars...)
			} else {
				m.Variables = append(m.Variables, vars...)
			}
		case symbolindex.MemberFunction:
			fns := BuildFunctions(withMethodDescriptor(candidatesOf(kb.Symbols, kb.Kind.IsStatic)))
			if kb.Kind.IsStatic {
				m.StaticFunctions = append(m.StaticFunctions, fns...)
			} else {
				m.Functions = append(m.Functions, fns...)
			}
		case symbolindex.MemberSubscript:
			subs := BuildSubscripts(withMethodDescriptor(candidatesOf(kb.Symbols, kb.Kind.IsStatic)))
			if kb.Kind.IsStatic {
				m.StaticSubscripts = append(m.StaticSubscripts, subs...)
			} else {
				m.Subscripts = append(m.Subscripts, subs...)
			}
		}
	}
}

// primitiveTypeNameRewrites maps a handful of standard-library value types
// to the bridged primitive name a resilient witness's conformance node
// sometimes names instead of the fully-qualified type (spec.md §4.4's
// "optional primitive type name rewrite").
var primitiveTypeNameRewrites = map[string]string{
	"Swift.Int":    "Int",
	"Swift.String": "String",
	"Swift.Double": "Double",
	"Swift.Float":  "Float",
	"Swift.Bool":   "Bool",
}

// Index performs ExtensionDefinition's lazy resilient-witness resolution
// (spec.md §4.4). Only meaningful when ProtocolConformance carries resilient
// witnesses; a no-op otherwise.
func (e *ExtensionDefinition) Index(storage *symbolindex.Storage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isIndexed {
		return
	}
	defer func() { e.isIndexed = true }()

	if e.ProtocolConformance == nil || len(e.ProtocolConformance.ResilientWitnesses) == 0 {
		return
	}

	for _, w := range e.ProtocolConformance.ResilientWitnesses {
		if e.resolveWitness(w.ImplementationSymbol) {
			continue
		}
		if w.DefaultImplementation != "" && e.resolveWitness(w.DefaultImplementation) {
			continue
		}
		e.MissingSymbolWitnesses = append(e.MissingSymbolWitnesses, MissingWitness{
			RequirementName: w.RequirementName,
			Reason:          "no implementation symbol's conformance target matched this extension, structurally, textually, or via primitive rewrite",
			SuggestedName:   e.suggestName(storage),
		})
	}
}

// resolveWitness tries to route symbolName as an extension member by
// matching its demangled protocol-conformance target against this
// extension's own target node: structural equality first, then textual
// (printed name) equality, then a primitive-name rewrite of this
// extension's own name.
func (e *ExtensionDefinition) resolveWitness(symbolName string) bool {
	if symbolName == "" {
		return false
	}
	node, err := mangle.Demangle(symbolName)
	if err != nil {
		return false
	}
	conf := node.DescendantOfKind(mangle.KindProtocolConformance)
	if conf == nil {
		return false
	}
	target := conf.FirstChild()
	if target == nil {
		return false
	}

	matched := e.TargetNode != nil && target.Equal(e.TargetNode)
	if !matched {
		matched = target.Print(mangle.InterfaceTypeBuilderOnly) == e.ExtensionName
	}
	if !matched {
		if rewritten, ok := primitiveTypeNameRewrites[e.ExtensionName]; ok {
			matched = target.Print(mangle.InterfaceTypeBuilderOnly) == rewritten
		}
	}
	if !matched {
		return false
	}

	e.routeClassifiedSymbol(symbolName, node)
	return true
}

// routeClassifiedSymbol appends a resolved witness symbol to this
// extension's Functions, named by the identifier of its first `.function`
// descendant. Only function witnesses are routed: a witness with no
// `.function` descendant (variable, subscript, allocator) is not added to
// any member list, and static witnesses land in Functions, not
// StaticFunctions.
func (e *ExtensionDefinition) routeClassifiedSymbol(symbolName string, node *mangle.Node) {
	fn := node.DescendantOfKind(mangle.KindFunction)
	if fn == nil {
		return
	}
	name := firstIdentifier(fn)
	if name == "" {
		return
	}
	e.Functions = append(e.Functions, FunctionDefinition{
		Name: name, Symbol: symbolName, Kind: mangle.KindFunction,
	})
}

// suggestName returns the nearest known type name (by edit distance) to
// this extension's own name, for an unresolvable witness's "did you mean"
// diagnostic. Empty if the nearest candidate's edit distance exceeds half
// the name's length plus one.
func (e *ExtensionDefinition) suggestName(storage *symbolindex.Storage) string {
	names := storage.TypeNames()
	if len(names) == 0 {
		return ""
	}

	type scored struct {
		name     string
		distance int
	}
	var candidates []scored
	for _, n := range names {
		if n == e.ExtensionName {
			continue
		}
		candidates = append(candidates, scored{name: n, distance: levenshtein.ComputeDistance(n, e.ExtensionName)})
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	best := candidates[0]
	if best.distance > len(e.ExtensionName)/2+1 {
		return ""
	}
	return best.name
}
