package entity

import (
	"sort"
	"strings"
)

// tokenize implements spec.md §4.5's search-index tokenizer: lowercase,
// split on non-alphanumeric, discard empty tokens.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// searchIndex is an inverted index: token -> set of ids whose indexed
// fields contain that token. Tokens are kept in a sorted slice alongside
// the map so prefix lookups can binary-search instead of scanning every
// token in the index.
type searchIndex struct {
	fields     []string
	postings   map[string]map[string]bool // token -> id set
	sortedKeys []string                   // kept in sync with postings
}

func newSearchIndex(fields []string) *searchIndex {
	return &searchIndex{fields: fields, postings: make(map[string]map[string]bool)}
}

// reset clears the index back to empty, keeping its declared fields.
func (s *searchIndex) reset() {
	s.postings = make(map[string]map[string]bool)
	s.sortedKeys = nil
}

// clone returns a structural copy sharing no mutable state with s.
func (s *searchIndex) clone() *searchIndex {
	c := &searchIndex{
		fields:     s.fields,
		postings:   make(map[string]map[string]bool, len(s.postings)),
		sortedKeys: append([]string(nil), s.sortedKeys...),
	}
	for tok, set := range s.postings {
		cset := make(map[string]bool, len(set))
		for id := range set {
			cset[id] = true
		}
		c.postings[tok] = cset
	}
	return c
}

func (s *searchIndex) addEntity(id string, e map[string]any) {
	for _, f := range s.fields {
		v, ok := FieldValue(e, f)
		if !ok {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		for _, tok := range tokenize(str) {
			s.addToken(tok, id)
		}
	}
}

func (s *searchIndex) removeEntity(id string, e map[string]any) {
	for _, f := range s.fields {
		v, ok := FieldValue(e, f)
		if !ok {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		for _, tok := range tokenize(str) {
			s.removeToken(tok, id)
		}
	}
}

func (s *searchIndex) addToken(tok, id string) {
	set, ok := s.postings[tok]
	if !ok {
		set = make(map[string]bool)
		s.postings[tok] = set
		s.insertSortedKey(tok)
	}
	set[id] = true
}

func (s *searchIndex) removeToken(tok, id string) {
	set, ok := s.postings[tok]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.postings, tok)
		s.removeSortedKey(tok)
	}
}

func (s *searchIndex) insertSortedKey(tok string) {
	i := sort.SearchStrings(s.sortedKeys, tok)
	s.sortedKeys = append(s.sortedKeys, "")
	copy(s.sortedKeys[i+1:], s.sortedKeys[i:])
	s.sortedKeys[i] = tok
}

func (s *searchIndex) removeSortedKey(tok string) {
	i := sort.SearchStrings(s.sortedKeys, tok)
	if i < len(s.sortedKeys) && s.sortedKeys[i] == tok {
		s.sortedKeys = append(s.sortedKeys[:i], s.sortedKeys[i+1:]...)
	}
}

// matchToken returns the set of ids matching tok exactly or by prefix
// (spec.md §4.5: "exact matches first, then prefix matches").
func (s *searchIndex) matchToken(tok string) map[string]bool {
	result := make(map[string]bool)
	if set, ok := s.postings[tok]; ok {
		for id := range set {
			result[id] = true
		}
	}
	start := sort.SearchStrings(s.sortedKeys, tok)
	for i := start; i < len(s.sortedKeys); i++ {
		key := s.sortedKeys[i]
		if !strings.HasPrefix(key, tok) {
			break
		}
		for id := range s.postings[key] {
			result[id] = true
		}
	}
	return result
}

// Query AND-intersects the match sets of every token in q (spec.md §4.5:
// "multi-token queries are AND-intersected by id set"). Match tracks, per
// id, how many of the tokens matched exactly vs by prefix, for the scoring
// stage in internal/query.
type Match struct {
	ExactTokens  int
	PrefixTokens int
}

func (s *searchIndex) Query(q string) map[string]*Match {
	tokens := tokenize(q)
	if len(tokens) == 0 {
		return map[string]*Match{}
	}

	var sets []map[string]bool
	matches := make(map[string]*Match)
	for _, tok := range tokens {
		exact := s.postings[tok]
		matched := s.matchToken(tok)
		sets = append(sets, matched)
		for id := range matched {
			m, ok := matches[id]
			if !ok {
				m = &Match{}
				matches[id] = m
			}
			if exact != nil && exact[id] {
				m.ExactTokens++
			} else {
				m.PrefixTokens++
			}
		}
	}

	intersection := sets[0]
	for _, set := range sets[1:] {
		next := make(map[string]bool)
		for id := range intersection {
			if set[id] {
				next[id] = true
			}
		}
		intersection = next
	}

	out := make(map[string]*Match, len(intersection))
	for id := range intersection {
		out[id] = matches[id]
	}
	return out
}
