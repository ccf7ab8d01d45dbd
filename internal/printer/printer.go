// Package printer renders the Interface Indexer's declaration graph
// (internal/definition) as an ordered stream of (text, semanticType)
// chunks, per SPEC_FULL.md §1.6's printer contract. It performs no I/O of
// its own and never mutates the graph beyond the lazy Index() calls the
// graph already exposes.
package printer

import (
	"sync"

	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/metadata"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// SemanticType classifies one rendered chunk for a caller that wants to
// syntax-highlight or otherwise post-process the output without
// re-parsing it.
type SemanticType int

const (
	SemanticPlain SemanticType = iota
	SemanticKeyword
	SemanticTypeName
	SemanticIdentifier
	SemanticPunctuation
	SemanticComment
	SemanticLiteral
)

// Chunk is one piece of rendered text tagged with its semantic type.
type Chunk struct {
	Text string
	Type SemanticType
}

// Options are the four rendering toggles SPEC_FULL.md §1.6 names.
type Options struct {
	EmitOffsetComments        bool
	PrintTypeLayout           bool
	PrintEnumLayout           bool
	PrintStrippedSymbolicItem bool
}

// nodeTextCacheCap is the soft cap on Printer's per-node-text cache;
// crossing it clears the whole map in one shot rather than evicting
// individual entries (SPEC_FULL.md §1.5).
const nodeTextCacheCap = 4096

// Printer renders a prepared Indexer's declaration graph. It is safe for
// concurrent use: the node-text cache is guarded by a single mutex.
type Printer struct {
	storage *symbolindex.Storage
	reader  *metadata.Reader
	img     *machoimage.Image
	opts    Options

	cacheMu sync.Mutex
	cache   map[string]string
}

// New constructs a Printer. storage and reader/img are passed straight
// through to TypeDefinition.Index/ExtensionDefinition.Index as the walk
// reaches each still-unindexed node.
func New(storage *symbolindex.Storage, reader *metadata.Reader, img *machoimage.Image, opts Options) *Printer {
	return &Printer{
		storage: storage,
		reader:  reader,
		img:     img,
		opts:    opts,
		cache:   map[string]string{},
	}
}

// printedName renders n with InterfaceTypeBuilderOnly, through the
// per-node-text cache.
func (p *Printer) printedName(n *mangle.Node) string {
	if n == nil {
		return ""
	}
	key := n.StructuralKey()

	p.cacheMu.Lock()
	if txt, ok := p.cache[key]; ok {
		p.cacheMu.Unlock()
		return txt
	}
	p.cacheMu.Unlock()

	txt := n.Print(mangle.InterfaceTypeBuilderOnly)

	p.cacheMu.Lock()
	if len(p.cache) >= nodeTextCacheCap {
		p.cache = map[string]string{}
	}
	p.cache[key] = txt
	p.cacheMu.Unlock()

	return txt
}

// builder accumulates chunks, coalescing adjacent chunks of the same
// semantic type (SPEC_FULL.md §1.6).
type builder struct {
	chunks []Chunk
}

func (b *builder) emit(text string, t SemanticType) {
	if text == "" {
		return
	}
	if n := len(b.chunks); n > 0 && b.chunks[n-1].Type == t {
		b.chunks[n-1].Text += text
		return
	}
	b.chunks = append(b.chunks, Chunk{Text: text, Type: t})
}

func (b *builder) chunkSlice() []Chunk {
	out := make([]Chunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}
