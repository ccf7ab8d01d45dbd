// Package machoimage adapts an opened Mach-O image — and, when present, the
// shared dyld cache it was extracted from — to the narrow surface the
// Symbol Index and metadata readers need: an ordinary-symbol iterator, an
// exported-symbol iterator, section bytes by name, and (optionally) the
// shared cache's region-sliding header.
//
// The actual Mach-O/dyld-cache decoding is delegated to
// github.com/blacktop/go-macho; this package owns none of that logic, only
// the adaptation to our Symbol shape.
package machoimage

import (
	"fmt"

	macho "github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/pkg/dyld"
)

// Symbol is the triple the Symbol Index ingests.
type Symbol struct {
	Offset int
	Name   string
	NList  *NList
}

// NList carries the subset of symbol-table flags the classifier cares
// about.
type NList struct {
	External  bool
	Undefined bool
}

// Image is the read surface the rest of the pipeline depends on. A real
// Mach-O image and a synthetic test fixture both satisfy it.
type Image struct {
	file       *macho.File
	cache      *dyld.File
	fromFile   bool // true when this Image is the on-disk file form, not a cache slice
	imageStart int64
}

// Open parses path as a Mach-O image. If cachePath is non-empty, it is
// opened as the shared dyld cache this image was extracted from, and
// SharedCache() will report its header.
func Open(path string, cachePath string) (*Image, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, fmt.Errorf("machoimage: open %s: %w", path, err)
	}

	img := &Image{file: f, fromFile: true}

	if cachePath != "" {
		c, err := dyld.Open(cachePath)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("machoimage: open shared cache %s: %w", cachePath, err)
		}
		img.cache = c
	}

	return img, nil
}

// Close releases the underlying file handles.
func (i *Image) Close() error {
	var err error
	if i.file != nil {
		err = i.file.Close()
	}
	if i.cache != nil {
		if cerr := i.cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// IsFileRepresentation reports whether this Image is the on-disk file form
// of an image that also lives in a shared cache (as opposed to being a
// cache-resident slice already biased by the cache's mapping).
func (i *Image) IsFileRepresentation() bool { return i.fromFile }

// SharedCache reports the shared cache's sliding-offset header, if one is
// attached.
func (i *Image) SharedCache() (SharedCacheHeader, bool) {
	if i.cache == nil {
		return SharedCacheHeader{}, false
	}
	return SharedCacheHeader{SharedRegionStart: int64(i.cache.Headers[0].SharedRegionStart)}, true
}

// SharedCacheHeader exposes the one field the Symbol Index needs from a
// shared dyld cache.
type SharedCacheHeader struct {
	SharedRegionStart int64
}

// Symbols iterates the ordinary symbol table.
func (i *Image) Symbols(yield func(Symbol) bool) {
	if i.file == nil || i.file.Symtab == nil {
		return
	}
	for _, s := range i.file.Symtab.Syms {
		sym := Symbol{
			Offset: int(s.Value),
			Name:   s.Name,
			NList: &NList{
				External:  s.Type&0x01 != 0, // N_EXT
				Undefined: s.Sect == 0,      // NO_SECT
			},
		}
		if !yield(sym) {
			return
		}
	}
}

// ExportedSymbols iterates the dyld-exported-symbol trie.
func (i *Image) ExportedSymbols(yield func(Symbol) bool) {
	if i.file == nil {
		return
	}
	exports, err := i.file.DyldExports()
	if err != nil {
		return
	}
	for _, e := range exports {
		if !yield(Symbol{Offset: int(e.Address), Name: e.Name}) {
			return
		}
	}
}

// Raw exposes the underlying go-macho file for the metadata package, which
// delegates Swift context-descriptor decoding to it.
func (i *Image) Raw() *macho.File { return i.file }

// Section returns the raw bytes of the named __TEXT/__DATA section (e.g.
// "__swift5_types"), or nil if absent.
func (i *Image) Section(segment, name string) []byte {
	if i.file == nil {
		return nil
	}
	sect := i.file.Section(segment, name)
	if sect == nil {
		return nil
	}
	data, err := sect.Data()
	if err != nil {
		return nil
	}
	return data
}
