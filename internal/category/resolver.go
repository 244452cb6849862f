package category

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token weights: a hit on the leaf's own label is worth more than a hit
// somewhere up its ancestor chain.
const (
	leafWeight     = 3
	ancestorWeight = 1
)

// Resolver maps free-text product copy to a 3-level category id path
// using token overlap against the taxonomy labels. It never fails the
// caller: with no confident match it falls back to the configured
// default path.
type Resolver struct {
	snap        *Snapshot
	defaultPath []string
}

// NewResolver creates a resolver over a valid snapshot. defaultPath may
// be nil when every record is expected to match.
func NewResolver(snap *Snapshot, defaultPath []string) *Resolver {
	return &Resolver{
		snap:        snap,
		defaultPath: defaultPath,
	}
}

// Match is one scored leaf candidate.
type Match struct {
	Leaf      Entry
	Path      []string
	FullLabel string
	Score     int
}

// Resolve returns the id path of the best-matching leaf, or the default
// path when nothing scores above zero. The result always has exactly 3
// ids (or is nil when no default is configured).
func (r *Resolver) Resolve(text string) []string {
	matches := r.Matches(text, 1)
	if len(matches) == 0 {
		return append([]string(nil), r.defaultPath...)
	}
	return matches[0].Path
}

// Matches scores every leaf against the text and returns the top
// candidates, best first. Ties break toward the longer (more specific)
// full label, then the smaller id for determinism.
func (r *Resolver) Matches(text string, limit int) []Match {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	var matches []Match
	for _, leaf := range r.snap.Leaves() {
		path, ok := r.snap.Path(leaf.ID)
		if !ok {
			// Broken ancestor chain; the leaf cannot be uploaded against.
			continue
		}

		leafLabel := strings.ToLower(leaf.Label)
		var ancestors strings.Builder
		for _, id := range path[:LevelCount-1] {
			e, _ := r.snap.Entry(id)
			ancestors.WriteString(strings.ToLower(e.Label))
		}
		ancestorLabels := ancestors.String()

		score := 0
		for _, tok := range tokens {
			if strings.Contains(leafLabel, tok) {
				score += leafWeight
			} else if strings.Contains(ancestorLabels, tok) {
				score += ancestorWeight
			}
		}
		if score == 0 {
			continue
		}

		matches = append(matches, Match{
			Leaf:      leaf,
			Path:      path,
			FullLabel: r.snap.FullLabel(leaf.ID),
			Score:     score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		li := utf8.RuneCountInString(matches[i].FullLabel)
		lj := utf8.RuneCountInString(matches[j].FullLabel)
		if li != lj {
			return li > lj
		}
		return matches[i].Leaf.ID < matches[j].Leaf.ID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// tokenize splits text into lowercase ASCII words and CJK bigrams.
// Single CJK runes only become tokens when they stand alone; bigrams
// carry enough meaning in Chinese labels while single characters match
// far too much.
func tokenize(text string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	add := func(tok string) {
		if _, ok := seen[tok]; !ok {
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}

	var word []rune
	var cjk []rune
	flushWord := func() {
		if len(word) > 0 {
			add(strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushCJK := func() {
		if len(cjk) == 1 {
			add(string(cjk))
		}
		for i := 0; i+1 < len(cjk); i++ {
			add(string(cjk[i : i+2]))
		}
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()

	return tokens
}
