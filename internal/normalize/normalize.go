// Package normalize turns raw conversational input into a clean token
// stream for the classifier. It lowercases, strips punctuation noise, and
// repairs misspellings against the known vocabulary within a bounded edit
// distance. Quoted literals and path-like tokens pass through verbatim so
// filenames and URLs are never corrupted.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"deskhand/internal/logging"
)

// Token is a normalized word unit.
type Token struct {
	Text      string // Normalized (possibly corrected) form
	Original  string // Raw form before correction
	Distance  int    // Edit distance from Original to Text (0 if untouched)
	Corrected bool   // True when a vocabulary correction was applied
	Literal   bool   // True for quoted/path tokens that passed through verbatim
}

// FrequencyFn reports how often a vocabulary term has been used. It breaks
// ties between equally close correction candidates; higher wins.
type FrequencyFn func(term string) int

// Normalizer corrects tokens against a known vocabulary.
type Normalizer struct {
	vocab     map[string]struct{}
	sorted    []string // Vocabulary in lexicographic order for stable ties
	frequency FrequencyFn
}

// New builds a Normalizer over the given vocabulary. freq may be nil, in
// which case ties fall back to lexicographic order alone.
func New(vocab []string, freq FrequencyFn) *Normalizer {
	n := &Normalizer{
		vocab:     make(map[string]struct{}, len(vocab)),
		frequency: freq,
	}
	for _, w := range vocab {
		w = strings.ToLower(w)
		if _, seen := n.vocab[w]; !seen {
			n.vocab[w] = struct{}{}
			n.sorted = append(n.sorted, w)
		}
	}
	sort.Strings(n.sorted)
	return n
}

// Normalize tokenizes and corrects raw input. The result is a finite slice;
// it never blocks and can be re-ranged freely.
func (n *Normalizer) Normalize(raw string) []Token {
	fields := splitFields(raw)
	tokens := make([]Token, 0, len(fields))

	for _, f := range fields {
		if f.literal {
			tokens = append(tokens, Token{Text: f.text, Original: f.text, Literal: true})
			continue
		}

		trimmed := strings.TrimFunc(f.text, isPunctNoise)
		if trimmed == "" {
			continue
		}

		// Path check runs on the raw form: lowercasing first would corrupt
		// case-sensitive filenames before they reach a handler.
		if IsPathLike(trimmed) {
			tokens = append(tokens, Token{Text: trimmed, Original: trimmed, Literal: true})
			continue
		}

		word := strings.ToLower(trimmed)
		if _, known := n.vocab[word]; known {
			tokens = append(tokens, Token{Text: word, Original: word})
			continue
		}
		if _, stop := stopWords[word]; stop {
			tokens = append(tokens, Token{Text: word, Original: word})
			continue
		}

		if best, dist, ok := n.nearest(word); ok {
			logging.Get(logging.CategoryClassify).Debugf("corrected %q -> %q (distance %d)", word, best, dist)
			tokens = append(tokens, Token{Text: best, Original: word, Distance: dist, Corrected: true})
			continue
		}

		tokens = append(tokens, Token{Text: word, Original: word})
	}

	return tokens
}

// stopWords are ordinary function words that are never correction
// targets. Repairing them rewrites plain sentences into commands: "do"
// is one edit from "go" and would break "what can you do".
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "i": {}, "me": {}, "my": {},
	"you": {}, "your": {}, "it": {}, "is": {}, "am": {}, "are": {},
	"was": {}, "be": {}, "do": {}, "did": {}, "does": {}, "can": {},
	"what": {}, "how": {}, "in": {}, "on": {}, "at": {}, "of": {},
	"off": {}, "up": {}, "out": {}, "for": {}, "with": {}, "this": {},
	"that": {}, "left": {}, "please": {},
}

// budget is the maximum allowed edit distance for a word of the given
// length. Short words get almost no slack: "was" must never turn into
// "last", nor "temp" into "help".
func budget(word string) int {
	switch n := len([]rune(word)); {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

// nearest finds the closest vocabulary term within the edit budget. Ties
// between equally close terms are broken by usage frequency, then
// lexicographic order (n.sorted is already lexicographic, so the first
// candidate at the best frequency wins).
func (n *Normalizer) nearest(word string) (string, int, bool) {
	max := budget(word)
	best := ""
	bestDist := max + 1
	bestFreq := -1

	for _, term := range n.sorted {
		d := boundedLevenshtein(word, term, max)
		if d < 0 || d > max {
			continue
		}
		f := 0
		if n.frequency != nil {
			f = n.frequency(term)
		}
		if d < bestDist || (d == bestDist && f > bestFreq) {
			best = term
			bestDist = d
			bestFreq = f
		}
	}

	if best == "" {
		return "", 0, false
	}
	return best, bestDist, true
}

// IsPathLike reports whether a token looks like a filesystem path, URL, or
// filename. Such tokens are opaque to correction and to workflow chain
// splitting.
func IsPathLike(s string) bool {
	if strings.ContainsAny(s, "/\\") {
		return true
	}
	if strings.HasPrefix(s, "~") || strings.HasPrefix(s, ".") {
		return true
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	// A dot followed by a short extension marks a filename.
	if i := strings.LastIndexByte(s, '.'); i > 0 && i < len(s)-1 && len(s)-i <= 6 {
		return true
	}
	return false
}

func isPunctNoise(r rune) bool {
	if r == '/' || r == '.' || r == '~' || r == '-' || r == '_' {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

type field struct {
	text    string
	literal bool
}

// splitFields splits on whitespace while keeping quoted segments intact.
// The quotes themselves are stripped; the content is marked literal.
func splitFields(raw string) []field {
	var out []field
	var cur strings.Builder
	inQuote := false
	var quote rune

	flush := func(literal bool) {
		if cur.Len() > 0 {
			out = append(out, field{text: cur.String(), literal: literal})
			cur.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case inQuote && r == quote:
			inQuote = false
			flush(true)
		case !inQuote && (r == '"' || r == '\''):
			flush(false)
			inQuote = true
			quote = r
		case !inQuote && unicode.IsSpace(r):
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	// An unterminated quote still yields its content as a literal.
	flush(inQuote)
	return out
}

// boundedLevenshtein computes edit distance between a and b, returning -1
// early when the distance must exceed max.
func boundedLevenshtein(a, b string, max int) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return -1
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			m := prev[j-1] + cost
			if v := prev[j] + 1; v < m {
				m = v
			}
			if v := cur[j-1] + 1; v < m {
				m = v
			}
			cur[j] = m
			if m < rowMin {
				rowMin = m
			}
		}
		if rowMin > max {
			return -1
		}
		prev, cur = cur, prev
	}

	if prev[lb] > max {
		return -1
	}
	return prev[lb]
}
