package metacpan

import (
	"fmt"
	"strings"
)

// Kind is a MetaCPAN entity kind.
type Kind string

const (
	KindAuthor       Kind = "author"
	KindModule       Kind = "module"
	KindDistribution Kind = "distribution"
	KindRelease      Kind = "release"
	KindFile         Kind = "file"
	KindFavorite     Kind = "favorite"
	KindRating       Kind = "rating"

	// KindPod is recognized but not supported.
	KindPod Kind = "pod"
)

// KindInfo describes how an entity kind is addressed on the backend.
type KindInfo struct {
	Kind Kind

	// IDField is the source field holding the record's identifier.
	IDField string

	// Endpoint is the path of the kind's documents relative to the base
	// URL. Records are fetched from Endpoint/{id} and searched through
	// Endpoint/_search.
	Endpoint string

	newView func() any
}

// SearchPath returns the search endpoint path for the kind.
func (i KindInfo) SearchPath() string {
	return i.Endpoint + "/_search"
}

var registry = map[Kind]KindInfo{
	KindAuthor:       {Kind: KindAuthor, IDField: "pauseid", Endpoint: "author", newView: func() any { return new(Author) }},
	KindModule:       {Kind: KindModule, IDField: "documentation", Endpoint: "module", newView: func() any { return new(Module) }},
	KindDistribution: {Kind: KindDistribution, IDField: "name", Endpoint: "distribution", newView: func() any { return new(Distribution) }},
	KindRelease:      {Kind: KindRelease, IDField: "name", Endpoint: "release", newView: func() any { return new(Release) }},
	KindFile:         {Kind: KindFile, IDField: "id", Endpoint: "file", newView: func() any { return new(File) }},
	KindFavorite:     {Kind: KindFavorite, IDField: "id", Endpoint: "favorite", newView: func() any { return new(Favorite) }},
	KindRating:       {Kind: KindRating, IDField: "id", Endpoint: "rating", newView: func() any { return new(Rating) }},
}

// Kinds returns the supported entity kinds.
func Kinds() []Kind {
	return []Kind{
		KindAuthor,
		KindModule,
		KindDistribution,
		KindRelease,
		KindFile,
		KindFavorite,
		KindRating,
	}
}

// Describe returns the registry entry for kind.
//
// Returns [ErrNotImplemented] for [KindPod] and [ErrUnknownKind] for
// anything else outside [Kinds].
func Describe(kind Kind) (KindInfo, error) {
	if kind == KindPod {
		return KindInfo{}, fmt.Errorf("%w: %s lookups", ErrNotImplemented, kind)
	}
	info, ok := registry[kind]
	if !ok {
		return KindInfo{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return info, nil
}

// ParseKind converts a user-supplied name into a Kind. Plural forms such
// as "authors" are accepted.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	k := Kind(s)
	if _, ok := registry[k]; ok || k == KindPod {
		return k, nil
	}
	if trimmed, ok := strings.CutSuffix(s, "s"); ok {
		k = Kind(trimmed)
		if _, ok := registry[k]; ok || k == KindPod {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
