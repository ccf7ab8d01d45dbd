package symbolindex

import (
	"log"

	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
)

// Build collects and classifies every language symbol in img and returns
// the resulting Storage, per the two-step algorithm of SPEC_FULL.md §1.4:
// Step 1 collects raw symbols (ordinary + exported, with shared-cache and
// image-start biasing), Step 2 demangles and classifies each one.
func Build(img *machoimage.Image) *Storage {
	sharedHeader, hasCache := img.SharedCache()

	var ordinary, exported []machoimage.Symbol
	img.Symbols(func(sym machoimage.Symbol) bool {
		ordinary = append(ordinary, sym)
		return true
	})
	img.ExportedSymbols(func(sym machoimage.Symbol) bool {
		exported = append(exported, sym)
		return true
	})

	var sharedRegionStart int
	if hasCache {
		sharedRegionStart = int(sharedHeader.SharedRegionStart)
	}

	return BuildFromSymbols(BuildInput{
		Ordinary:             ordinary,
		Exported:             exported,
		HasSharedCache:       hasCache,
		IsFileRepresentation: img.IsFileRepresentation(),
		SharedRegionStart:    sharedRegionStart,
		ImageStartOffset:     imageStartOffset(img),
	})
}

// BuildInput is the symbol-collection phase's input, factored out of *Image
// so the classification algorithm can be exercised directly against
// synthetic fixtures.
type BuildInput struct {
	Ordinary             []machoimage.Symbol
	Exported             []machoimage.Symbol
	HasSharedCache       bool
	IsFileRepresentation bool
	SharedRegionStart    int
	ImageStartOffset     int
}

// BuildFromSymbols runs Steps 1-2 of the build algorithm over an already
// collected symbol set.
func BuildFromSymbols(in BuildInput) *Storage {
	s := newStorage()

	// Step 1a: ordinary symbols.
	for _, sym := range in.Ordinary {
		if !mangle.HasManglingPrefix(sym.Name) {
			continue
		}

		s.insertSymbol(sym)

		if in.HasSharedCache && in.IsFileRepresentation && sym.Offset != 0 {
			// See SPEC_FULL.md §1.7 / spec.md §9: offset == 0 symbols never
			// get the shared-cache bias applied, even when a cache is
			// attached.
			biased := sym
			biased.Offset = sym.Offset - in.SharedRegionStart
			s.insertSymbol(biased)
		}
	}

	// Step 1b: exported symbols not already seen.
	for _, sym := range in.Exported {
		if !mangle.HasManglingPrefix(sym.Name) {
			continue
		}
		if _, seen := s.symbolByName[sym.Name]; seen {
			continue
		}

		s.insertSymbol(sym)

		biased := sym
		biased.Offset = sym.Offset + in.ImageStartOffset
		s.insertSymbol(biased)
	}

	// Step 2: demangle and classify every unique symbol (by name), in
	// first-contact insertion order (SPEC_FULL.md §1.5).
	for _, name := range s.symbolNameOrder {
		sym := s.symbolByName[name]
		root, err := mangle.Demangle(sym.Name)
		if err != nil {
			log.Printf("symbolindex: demangle %q: %v", sym.Name, err)
			continue
		}

		key := keyOf(sym)
		s.demangledNodeBySymbol[key] = root

		if root.Kind != mangle.KindGlobal || len(root.Children) == 0 {
			continue
		}

		indexed := &IndexedSymbol{Symbol: sym, Node: root}
		s.allSymbols = append(s.allSymbols, indexed)

		n0 := root.Children[0]
		s.appendAllByKind(n0.Kind, indexed)

		s.classifyRoot(indexed, root, n0)
	}

	return s
}

// imageStartOffset biases an exported symbol's address relative to the
// start of the on-disk image. A real implementation resolves this from the
// Mach-O load commands; until the collaborator surfaces that value
// directly we treat it as zero, matching the "file representation" default
// when the image is not itself shared-cache-resident.
func imageStartOffset(img *machoimage.Image) int {
	return 0
}

func (s *Storage) insertSymbol(sym machoimage.Symbol) {
	if _, seen := s.symbolByName[sym.Name]; !seen {
		s.symbolNameOrder = append(s.symbolNameOrder, sym.Name)
	}
	s.symbolByName[sym.Name] = sym // last-wins, matches build-order insertion
	s.symbolsByOffset[sym.Offset] = append(s.symbolsByOffset[sym.Offset], sym)
}

func (s *Storage) appendAllByKind(k mangle.Kind, sym *IndexedSymbol) {
	if _, ok := s.allByKind[k]; !ok {
		s.kindOrder = append(s.kindOrder, k)
	}
	s.allByKind[k] = append(s.allByKind[k], sym)
}

// isGlobalPredicate implements the GLOSSARY's isGlobal predicate: n0 is one
// of {getter, setter, function, variable}, and — walking through an
// accessor to its variable child when necessary — that variable's first
// child is a module.
func isGlobalPredicate(n0 *mangle.Node) bool {
	switch n0.Kind {
	case mangle.KindFunction, mangle.KindVariable:
		return n0.FirstChild().Kind == mangle.KindModule
	case mangle.KindGetter, mangle.KindSetter:
		v := n0.FirstChild()
		if v == nil || v.Kind != mangle.KindVariable {
			return false
		}
		return v.FirstChild().Kind == mangle.KindModule
	default:
		return false
	}
}

// classifyRoot implements the branching of SPEC_FULL.md §1.4 / spec.md
// §4.1 step 2.4.
func (s *Storage) classifyRoot(sym *IndexedSymbol, root, n0 *mangle.Node) {
	isExternal := sym.Symbol.NList != nil && sym.Symbol.NList.External

	if isGlobalPredicate(n0) && !isExternal {
		s.processGlobalSymbol(sym, n0)
		return
	}

	switch n0.Kind {
	case mangle.KindMethodDescriptor:
		child0 := n0.FirstChild()
		mk, typeName, typeNode := s.processMemberSymbol(child0)
		if typeName != "" {
			s.addMemberBucket(s.methodDescriptorMembersMap(), &s.methodDescriptorOrder, mk, typeName, typeNode, sym)
		}
		return

	case mangle.KindProtocolWitness:
		child0 := n0.FirstChild()
		mk, typeName, typeNode := s.processMemberSymbol(child0)
		if typeName != "" {
			s.addMemberBucket(s.protocolWitnessMembers, &s.protocolWitnessOrder, mk, typeName, typeNode, sym)
		}
		return

	case mangle.KindMergedFunction:
		// Guard both accesses: spec.md §9 leaves root.children[0]'s
		// existence unclear for malformed input under this branch.
		if len(root.Children) < 2 {
			return
		}
		classify := root.Children[1]
		mk, typeName, typeNode := s.processMemberSymbol(classify)
		if typeName != "" {
			s.addMemberBucket(s.membersByKind, &s.memberKindOrder, mk, typeName, typeNode, sym)
		}
		return

	case mangle.KindOpaqueTypeDescriptor:
		if sym.Symbol.Offset <= 0 {
			return
		}
		child := n0.FirstChild()
		if child == nil || child.Kind != mangle.KindOpaqueReturnTypeOf {
			return
		}
		x := child.FirstChild()
		if x == nil {
			return
		}
		key := x.StructuralKey()
		if _, ok := s.opaqueTypeDescriptorByNode[key]; !ok {
			s.opaqueOrder = append(s.opaqueOrder, key)
		}
		s.opaqueTypeDescriptorByNode[key] = &opaqueEntry{node: x, sym: sym}
		return
	}

	mk, typeName, typeNode := s.processMemberSymbol(n0)
	if typeName != "" {
		s.addMemberBucket(s.membersByKind, &s.memberKindOrder, mk, typeName, typeNode, sym)
	}
}

func (s *Storage) methodDescriptorMembersMap() map[MemberKind]*memberBucket {
	return s.methodDescriptorMembers
}

// processGlobalSymbol classifies a root-global, non-external symbol as
// either a global function or a global (possibly stored) variable
// (spec.md §4.1 step 2.4, first bullet).
func (s *Storage) processGlobalSymbol(sym *IndexedSymbol, n0 *mangle.Node) {
	switch n0.Kind {
	case mangle.KindFunction:
		s.appendGlobal(GlobalFunction, sym)

	case mangle.KindVariable:
		isStorage := n0.IsFirstChildOf(n0.Parent) && n0.Parent != nil && n0.Parent.Kind != mangle.KindGetter && n0.Parent.Kind != mangle.KindSetter
		s.appendGlobal(globalVariable(isStorage), sym)

	case mangle.KindGetter, mangle.KindSetter:
		v := n0.FirstChild()
		if v == nil {
			return
		}
		s.processGlobalSymbol(sym, v)
	}
}

func (s *Storage) appendGlobal(gk GlobalKind, sym *IndexedSymbol) {
	if _, ok := s.globalsByKind[gk]; !ok {
		s.globalOrder = append(s.globalOrder, gk)
	}
	s.globalsByKind[gk] = append(s.globalsByKind[gk], sym)
}

// processMemberSymbol recursively peels outer wrappers from n, implementing
// spec.md §4.1's member-classification rules, and returns the resolved
// MemberKind plus the terminal type's name/node if n bottoms out on a
// nominal type.
func (s *Storage) processMemberSymbol(n *mangle.Node) (MemberKind, string, *mangle.Node) {
	return s.peel(n, MemberKind{})
}

func (s *Storage) peel(n *mangle.Node, acc MemberKind) (MemberKind, string, *mangle.Node) {
	if n == nil {
		return acc, "", nil
	}

	switch n.Kind {
	case mangle.KindStatic:
		inner := n.FirstChild()
		if inner != nil && inner.Kind.IsMember() {
			acc.IsStatic = true
			return s.peel(inner, acc)
		}
		return acc, "", nil

	case mangle.KindAllocator, mangle.KindConstructor, mangle.KindFunction:
		if ext := n.FirstChild(); ext != nil && ext.Kind == mangle.KindExtension {
			acc.InExtension = true
			nominal := ext.Child(1)
			acc.Syntax = syntaxFor(n.Kind)
			return s.terminal(nominal, acc)
		}
		acc.Syntax = syntaxFor(n.Kind)
		return s.terminal(n.FirstChild(), acc)

	case mangle.KindDeallocator:
		acc.Syntax = MemberDeallocator
		return s.terminal(n.FirstChild(), acc)

	case mangle.KindDestructor:
		acc.Syntax = MemberDestructor
		return s.terminal(n.FirstChild(), acc)

	case mangle.KindVariable:
		if n.IsFirstChildOf(n.Parent) {
			acc.Syntax = MemberVariable
			acc.IsStorage = true
			return s.terminal(n.FirstChild(), acc)
		}
		acc.Syntax = MemberVariable
		return s.terminal(n.FirstChild(), acc)

	case mangle.KindGetter, mangle.KindSetter:
		child := n.FirstChild()
		if child == nil {
			return acc, "", nil
		}
		switch child.Kind {
		case mangle.KindVariable:
			acc.Syntax = MemberVariable
			acc.IsStorage = true // preserved per spec.md §9's documented quirk
			return s.terminalFromWrapped(child, acc)
		case mangle.KindSubscript:
			acc.Syntax = MemberSubscript
			return s.terminalFromWrapped(child, acc)
		}
		return acc, "", nil

	case mangle.KindSubscript:
		acc.Syntax = MemberSubscript
		return s.terminal(n.FirstChild(), acc)
	}

	return acc, "", nil
}

// terminalFromWrapped unwraps one more level (the variable/subscript node
// itself) before resolving the terminal type, matching the getter/setter
// branch which classifies on the *wrapped* declaration's owner, not on the
// getter/setter node's own (nonexistent) type child.
func (s *Storage) terminalFromWrapped(wrapped *mangle.Node, acc MemberKind) (MemberKind, string, *mangle.Node) {
	return s.terminal(wrapped.FirstChild(), acc)
}

func syntaxFor(k mangle.Kind) MemberSyntax {
	switch k {
	case mangle.KindAllocator:
		return MemberAllocator
	case mangle.KindConstructor:
		return MemberConstructor
	default:
		return MemberFunction
	}
}

// terminal resolves the final type node T, builds typeNode = Node(type,
// [T]) and typeName = typeNode.Print(InterfaceTypeBuilderOnly), and, if T's
// kind is nominal, records the TypeInfo.
func (s *Storage) terminal(t *mangle.Node, acc MemberKind) (MemberKind, string, *mangle.Node) {
	if t == nil || !t.Kind.IsNominalType() {
		return acc, "", nil
	}

	typeNode := mangle.NewNode(mangle.KindType, "", t)
	typeName := typeNode.Print(mangle.InterfaceTypeBuilderOnly)

	if _, ok := s.typeInfoByName[typeName]; !ok {
		s.typeNameOrder = append(s.typeNameOrder, typeName)
	}
	s.typeInfoByName[typeName] = TypeInfo{Name: typeName, Kind: t.Kind}

	return acc, typeName, typeNode
}

func (s *Storage) addMemberBucket(buckets map[MemberKind]*memberBucket, order *[]MemberKind, mk MemberKind, typeName string, typeNode *mangle.Node, sym *IndexedSymbol) {
	b, ok := buckets[mk]
	if !ok {
		b = newMemberBucket()
		buckets[mk] = b
		*order = append(*order, mk)
	}
	b.append(typeName, typeNode, sym)
}
