package definition

import (
	"strings"

	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// Candidate is one (symbol, demangled node, offset) triple a builder
// consumes, per spec.md §4.3.
type Candidate struct {
	Symbol           string
	Node             *mangle.Node
	Offset           int
	IsStatic         bool
	MethodDescriptor *string
}

func candidatesOf(syms []*symbolindex.IndexedSymbol, isStatic bool) []Candidate {
	out := make([]Candidate, 0, len(syms))
	for _, s := range syms {
		out = append(out, Candidate{Symbol: s.Symbol.Name, Node: s.Node, Offset: s.Symbol.Offset, IsStatic: isStatic})
	}
	return out
}

// BuildVariables groups candidates by their first `.variable` descendant's
// identifier, drops accessors whose name is a known field name, and emits
// one VariableDefinition per group — representative node is the first with
// a getter child, or the first with no accessor at all.
func BuildVariables(candidates []Candidate, fieldNames map[string]bool) []VariableDefinition {
	type group struct {
		name          string
		representative *mangle.Node
		hasGetter     bool
		accessors     []Accessor
		isStatic      bool
	}

	order := []string{}
	groups := map[string]*group{}

	for _, c := range candidates {
		v := c.Node.DescendantOfKind(mangle.KindVariable)
		if v == nil {
			continue
		}
		ident := firstIdentifier(v)
		if ident == "" || fieldNames[ident] {
			continue
		}

		g, ok := groups[ident]
		if !ok {
			g = &group{name: ident, isStatic: c.IsStatic}
			groups[ident] = g
			order = append(order, ident)
		}

		accessorKind, hasAccessor := accessorKindOf(c.Node)
		if hasAccessor {
			g.accessors = append(g.accessors, Accessor{
				Kind: accessorKind, Symbol: c.Symbol, Offset: c.Offset, MethodDescriptor: c.MethodDescriptor,
			})
		}

		isGetter := accessorKind == mangle.KindGetter
		if g.representative == nil || (isGetter && !g.hasGetter) {
			g.representative = c.Node
			g.hasGetter = g.hasGetter || isGetter
		}
	}

	out := make([]VariableDefinition, 0, len(order))
	for _, name := range order {
		g := groups[name]
		out = append(out, VariableDefinition{
			Name:      name,
			Node:      g.representative,
			Accessors: g.accessors,
			IsStatic:  g.isStatic,
		})
	}
	return out
}

// BuildSubscripts groups candidates by the structural key of their
// `.subscript` descendant and emits one SubscriptDefinition per group whose
// representative node contains a getter.
func BuildSubscripts(candidates []Candidate) []SubscriptDefinition {
	type group struct {
		node          *mangle.Node
		representative *mangle.Node
		hasGetter     bool
		accessors     []Accessor
		isStatic      bool
	}

	order := []string{}
	groups := map[string]*group{}

	for _, c := range candidates {
		sub := c.Node.DescendantOfKind(mangle.KindSubscript)
		if sub == nil {
			continue
		}
		key := sub.StructuralKey()

		g, ok := groups[key]
		if !ok {
			g = &group{node: sub, isStatic: c.IsStatic}
			groups[key] = g
			order = append(order, key)
		}

		accessorKind, hasAccessor := accessorKindOf(c.Node)
		if hasAccessor {
			g.accessors = append(g.accessors, Accessor{
				Kind: accessorKind, Symbol: c.Symbol, Offset: c.Offset, MethodDescriptor: c.MethodDescriptor,
			})
		}
		isGetter := accessorKind == mangle.KindGetter
		if g.representative == nil || (isGetter && !g.hasGetter) {
			g.representative = c.Node
			g.hasGetter = g.hasGetter || isGetter
		}
	}

	out := make([]SubscriptDefinition, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, SubscriptDefinition{Node: g.representative, Accessors: g.accessors, IsStatic: g.isStatic})
	}
	return out
}

// BuildAllocators emits one FunctionDefinition per symbol, always
// IsGlobalOrStatic per spec.md §4.3.
func BuildAllocators(candidates []Candidate) []FunctionDefinition {
	out := make([]FunctionDefinition, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, FunctionDefinition{
			Symbol: c.Symbol, Offset: c.Offset, Kind: mangle.KindAllocator,
			IsGlobalOrStatic: true, MethodDescriptor: c.MethodDescriptor,
		})
	}
	return out
}

// BuildFunctions emits one FunctionDefinition per symbol that carries a
// `.function` descendant with an identifier; the definition's name is that
// identifier's text.
func BuildFunctions(candidates []Candidate) []FunctionDefinition {
	out := make([]FunctionDefinition, 0, len(candidates))
	for _, c := range candidates {
		fn := c.Node.DescendantOfKind(mangle.KindFunction)
		if fn == nil {
			continue
		}
		name := firstIdentifier(fn)
		if name == "" {
			continue
		}
		out = append(out, FunctionDefinition{
			Name: name, Symbol: c.Symbol, Offset: c.Offset, Kind: mangle.KindFunction,
			IsStatic: c.IsStatic, MethodDescriptor: c.MethodDescriptor,
		})
	}
	return out
}

func firstIdentifier(n *mangle.Node) string {
	for _, c := range n.Children {
		if c != nil && c.Kind == mangle.KindIdentifier {
			return c.Text
		}
	}
	return ""
}

// accessorKindOf reports the accessor kind wrapping a member node's tree,
// if any: the root payload node itself must be a getter/setter/modify/read
// accessor.
func accessorKindOf(n *mangle.Node) (mangle.Kind, bool) {
	switch n.Kind {
	case mangle.KindGetter, mangle.KindSetter, mangle.KindModifyAccessor, mangle.KindReadAccessor:
		return n.Kind, true
	default:
		return 0, false
	}
}

// stripLazyStoragePrefix strips the "$__lazy_storage_$_" marker go-macho's
// own field-descriptor dump uses for synthesized lazy-property backing
// storage, reporting whether it was present.
func stripLazyStoragePrefix(name string) (string, bool) {
	const prefix = "$__lazy_storage_$_"
	if strings.HasPrefix(name, prefix) {
		return strings.TrimPrefix(name, prefix), true
	}
	return name, false
}
