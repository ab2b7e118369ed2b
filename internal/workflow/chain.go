package workflow

import "strings"

// ============================================================================
// CHAIN SPLITTING
// ============================================================================

// SplitChain breaks a spoken command chain into individual commands.
// Connectors are recognized only outside quoted segments, so a file
// called "plan and then some.txt" stays intact.
func SplitChain(raw string) []string {
	var (
		parts   []string
		current strings.Builder
		words   []string
	)

	flushWord := func(w string) {
		words = append(words, w)
	}
	flushPart := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			parts = append(parts, text)
		}
		current.Reset()
	}

	// Tokenize keeping quoted runs as single opaque words.
	inQuote := false
	var word strings.Builder
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
			word.WriteRune(r)
		case r == ' ' && !inQuote:
			if word.Len() > 0 {
				flushWord(word.String())
				word.Reset()
			}
		default:
			word.WriteRune(r)
		}
	}
	if word.Len() > 0 {
		flushWord(word.String())
	}

	for i := 0; i < len(words); i++ {
		w := words[i]
		lower := strings.ToLower(w)

		// Connectors must stand alone as words, so one embedded in a
		// quoted segment or a path-like token never splits.
		connector := false
		switch {
		case w == "→":
			connector = true
		case lower == "then" && !strings.HasPrefix(w, `"`):
			connector = true
		case lower == "and" && i+1 < len(words) && strings.ToLower(words[i+1]) == "then":
			connector = true
			i++ // consume the "then"
		}

		if connector {
			flushPart()
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	flushPart()

	if len(parts) == 0 {
		return []string{strings.TrimSpace(raw)}
	}
	return parts
}
