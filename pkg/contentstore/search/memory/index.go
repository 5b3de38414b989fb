package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// Index is an in-memory implementation of contentstore.SearchIndex backed by
// an inverted token index
type Index struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]contentstore.IndexEntry
	tokens  map[string]map[uuid.UUID]struct{}
}

// New creates a new in-memory search index
func New() *Index {
	return &Index{
		entries: make(map[uuid.UUID]contentstore.IndexEntry),
		tokens:  make(map[string]map[uuid.UUID]struct{}),
	}
}

// Index adds or replaces the indexed document for a resource
func (i *Index) Index(ctx context.Context, entry contentstore.IndexEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.removeLocked(entry.ResourceID)

	i.entries[entry.ResourceID] = entry
	for _, token := range tokenize(entry.Name + " " + entry.Text) {
		set, ok := i.tokens[token]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			i.tokens[token] = set
		}
		set[entry.ResourceID] = struct{}{}
	}

	return nil
}

// Remove drops a resource from the index
func (i *Index) Remove(ctx context.Context, resourceID uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.removeLocked(resourceID)
	return nil
}

func (i *Index) removeLocked(resourceID uuid.UUID) {
	delete(i.entries, resourceID)
	for token, set := range i.tokens {
		delete(set, resourceID)
		if len(set) == 0 {
			delete(i.tokens, token)
		}
	}
}

// Search returns IDs of resources matching the request. All query terms must
// match; KeyPattern is a doublestar glob applied to object keys and names.
func (i *Index) Search(ctx context.Context, req contentstore.SearchRequest) ([]uuid.UUID, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	candidates := make(map[uuid.UUID]struct{})

	terms := tokenize(req.Query)
	if len(terms) == 0 {
		for id := range i.entries {
			candidates[id] = struct{}{}
		}
	} else {
		for n, term := range terms {
			set := i.tokens[term]
			if n == 0 {
				for id := range set {
					candidates[id] = struct{}{}
				}
				continue
			}
			for id := range candidates {
				if _, ok := set[id]; !ok {
					delete(candidates, id)
				}
			}
		}
	}

	var result []uuid.UUID
	for id := range candidates {
		entry := i.entries[id]
		if req.KeyPattern != "" && !matchPattern(req.KeyPattern, entry) {
			continue
		}
		result = append(result, id)
	}

	sort.Slice(result, func(a, b int) bool {
		return i.entries[result[a]].ObjectKey < i.entries[result[b]].ObjectKey
	})

	if req.Limit > 0 && req.Limit < len(result) {
		result = result[:req.Limit]
	}

	return result, nil
}

func matchPattern(pattern string, entry contentstore.IndexEntry) bool {
	if ok, err := doublestar.Match(pattern, entry.ObjectKey); err == nil && ok {
		return true
	}
	if ok, err := doublestar.Match(pattern, entry.Name); err == nil && ok {
		return true
	}
	return false
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var tokens []string
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
