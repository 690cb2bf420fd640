// Package section maps document section names to the numeric ids stored
// in index offsets and packed position codes.
package section

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/pkg/config"
)

// Section is one named region of a document.
type Section struct {
	ID    uint8
	Short string
	Full  string
}

// Registry resolves section names. It is immutable after construction and
// safe for concurrent use.
type Registry struct {
	byID    map[uint8]Section
	byShort map[string]uint8
	byFull  map[string]uint8
}

// NewRegistry validates the configured sections. Ids must be in 1..15 and
// names unique; names are matched case-insensitively.
func NewRegistry(cfgs []config.SectionConfig) (*Registry, error) {
	r := &Registry{
		byID:    make(map[uint8]Section, len(cfgs)),
		byShort: make(map[string]uint8, len(cfgs)),
		byFull:  make(map[string]uint8, len(cfgs)),
	}
	for _, c := range cfgs {
		if c.ID == 0 || c.ID > 15 {
			return nil, fmt.Errorf("section %q: id %d outside 1..15", c.Full, c.ID)
		}
		s := Section{ID: c.ID, Short: strings.ToLower(c.Short), Full: strings.ToLower(c.Full)}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("section %q: duplicate id %d", s.Full, s.ID)
		}
		if _, dup := r.byShort[s.Short]; dup && s.Short != "" {
			return nil, fmt.Errorf("section %q: duplicate short name %q", s.Full, s.Short)
		}
		if _, dup := r.byFull[s.Full]; dup {
			return nil, fmt.Errorf("section %q: duplicate name", s.Full)
		}
		r.byID[s.ID] = s
		if s.Short != "" {
			r.byShort[s.Short] = s.ID
		}
		r.byFull[s.Full] = s.ID
	}
	return r, nil
}

// Default returns the registry built from config.DefaultSections.
func Default() *Registry {
	r, err := NewRegistry(config.DefaultSections())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) ResolveShort(name string) (uint8, bool) {
	id, ok := r.byShort[strings.ToLower(name)]
	return id, ok
}

func (r *Registry) ResolveFull(name string) (uint8, bool) {
	id, ok := r.byFull[strings.ToLower(name)]
	return id, ok
}

// Resolve tries the short name first, then the full name.
func (r *Registry) Resolve(name string) (uint8, bool) {
	if id, ok := r.ResolveShort(name); ok {
		return id, true
	}
	return r.ResolveFull(name)
}

// Lookup returns the section with the given id.
func (r *Registry) Lookup(id uint8) (Section, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Name returns the full name of section id, or "" when unknown.
func (r *Registry) Name(id uint8) string {
	return r.byID[id].Full
}
