// Package parser turns source URLs into raw items. Each source type is a
// Variant; the Registry holds them in priority order with the generic
// feed variant always consulted last.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedjam/internal/model"
)

// ErrNoParser is returned for a source type no variant handles.
var ErrNoParser = errors.New("no parser available")

// Variant is one parsing strategy.
type Variant struct {
	Type string
	// HasCounts marks types whose points/views are meaningful for ranking.
	HasCounts bool
	CanHandle func(rawURL string) bool
	NameFor   func(rawURL string) string
	Parse     func(ctx context.Context, src model.Source) ([]model.RawItem, error)
}

// Registry dispatches by source type and detects types from URLs.
type Registry struct {
	variants []Variant
	generic  Variant
	byType   map[string]Variant
}

// NewRegistry builds a registry. variants are tried in order by DetectType;
// generic is the fallback type.
func NewRegistry(generic Variant, variants ...Variant) *Registry {
	r := &Registry{
		variants: variants,
		generic:  generic,
		byType:   make(map[string]Variant, len(variants)+1),
	}
	for _, v := range variants {
		r.byType[v.Type] = v
	}
	r.byType[generic.Type] = generic
	return r
}

func (r *Registry) detect(rawURL string) Variant {
	for _, v := range r.variants {
		if v.CanHandle(rawURL) {
			return v
		}
	}
	return r.generic
}

// DetectType returns the type of the first variant that can handle rawURL,
// or the generic type.
func (r *Registry) DetectType(rawURL string) string {
	return r.detect(rawURL).Type
}

// NameFor returns a human-readable source name for rawURL.
func (r *Registry) NameFor(rawURL string) string {
	return r.detect(rawURL).NameFor(rawURL)
}

// Lookup returns the variant registered for sourceType.
func (r *Registry) Lookup(sourceType string) (Variant, bool) {
	v, ok := r.byType[sourceType]
	return v, ok
}

// HasCounts reports whether items of sourceType carry meaningful
// popularity counts.
func (r *Registry) HasCounts(sourceType string) bool {
	v, ok := r.byType[sourceType]
	return ok && v.HasCounts
}

// Types lists registered types in detection order, generic last.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.variants)+1)
	for _, v := range r.variants {
		out = append(out, v.Type)
	}
	return append(out, r.generic.Type)
}

// NewSource describes rawURL as an active source with a detected type and name.
func (r *Registry) NewSource(rawURL string) model.Source {
	rawURL = strings.TrimSpace(rawURL)
	v := r.detect(rawURL)
	return model.Source{
		Name:        v.NameFor(rawURL),
		ResourceURL: rawURL,
		SourceType:  v.Type,
		IsActive:    true,
	}
}

// Parse fetches and parses src with the variant for its type. An empty
// type is detected from the URL. Errors are returned as-is; nothing is
// retried here.
func (r *Registry) Parse(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	var v Variant
	if src.SourceType == "" {
		v = r.detect(src.ResourceURL)
	} else {
		var ok bool
		if v, ok = r.byType[src.SourceType]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoParser, src.SourceType)
		}
	}
	items, err := v.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", v.Type, src.ResourceURL, err)
	}
	return items, nil
}
