package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"deskhand/internal/llm"
	"deskhand/internal/logging"
	"deskhand/internal/normalize"
)

// DispatchThreshold is the minimum confidence required to act on an intent.
// Anything below it must be clarified with the user, never dispatched.
const DispatchThreshold = 0.75

// epsilon is the confidence band within which two candidates of different
// kinds count as ambiguous.
const epsilon = 0.1

// Classifier maps normalized tokens to a ranked set of intents. Phase one
// is the deterministic rule table; phase two is the LLM backend, consulted
// only when no rule clears the dispatch threshold.
type Classifier struct {
	backend llm.Client // nil disables the fallback
}

// NewClassifier builds a classifier. backend may be nil, in which case
// classification is purely deterministic.
func NewClassifier(backend llm.Client) *Classifier {
	return &Classifier{backend: backend}
}

// Classify maps tokens onto an Intent. It returns *AmbiguousError when two
// close candidates need clarification; any other outcome is a valid Intent,
// worst case KindUnknown carrying the raw input. It never otherwise fails.
func (c *Classifier) Classify(ctx context.Context, raw string, tokens []normalize.Token, sctx Context) (Intent, error) {
	timer := logging.StartTimer(logging.CategoryClassify, "classify")
	defer timer.Stop()

	candidates := c.matchRules(tokens, sctx)

	if len(candidates) > 0 {
		top := candidates[0]
		if len(candidates) > 1 {
			second := candidates[1]
			if second.Kind != top.Kind && top.Confidence-second.Confidence < epsilon {
				logging.Get(logging.CategoryClassify).Infof("ambiguous: %s (%.2f) vs %s (%.2f)",
					top.Kind, top.Confidence, second.Kind, second.Confidence)
				return Intent{}, &AmbiguousError{Candidates: []Intent{top, second}}
			}
		}
		if top.Confidence >= DispatchThreshold {
			top.Raw = raw
			top.Timestamp = time.Now()
			return top, nil
		}
	}

	// Phase two: no rule cleared the threshold. Ask the backend, falling
	// back to the best deterministic candidate (or unknown) on any failure.
	if c.backend != nil {
		if in, ok := c.inferWithBackend(ctx, raw, sctx); ok {
			return in, nil
		}
	}

	if len(candidates) > 0 {
		best := candidates[0]
		best.Raw = raw
		best.Timestamp = time.Now()
		return best, nil
	}
	return unknownIntent(raw), nil
}

// matchRules runs the rule table, keeping the first (most specific) match
// per kind, ranked by confidence.
func (c *Classifier) matchRules(tokens []normalize.Token, sctx Context) []Intent {
	text := joinTokens(tokens)
	seen := make(map[Kind]bool)
	var out []Intent

	for _, r := range ruleTable {
		if seen[r.kind] {
			continue
		}
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		params := make(map[string]string)
		for i, name := range r.re.SubexpNames() {
			if name != "" && i < len(m) && m[i] != "" {
				params[name] = strings.TrimSpace(m[i])
			}
		}
		if r.bind != nil {
			r.bind(params, sctx)
		}
		seen[r.kind] = true
		out = append(out, Intent{
			Kind:       r.kind,
			Params:     params,
			Confidence: r.confidence,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func joinTokens(tokens []normalize.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func unknownIntent(raw string) Intent {
	return Intent{
		Kind:       KindUnknown,
		Params:     map[string]string{"input": raw},
		Confidence: 0.1,
		Raw:        raw,
		Timestamp:  time.Now(),
	}
}

// backendReply is the structured response expected from the LLM.
type backendReply struct {
	Kind       string            `json:"kind"`
	Params     map[string]string `json:"params"`
	Confidence float64           `json:"confidence"`
}

func (c *Classifier) inferWithBackend(ctx context.Context, raw string, sctx Context) (Intent, bool) {
	prompt := buildPrompt(raw, sctx)

	resp, err := c.backend.Infer(ctx, prompt)
	if err != nil {
		logging.Get(logging.CategoryLLM).Warnf("backend fallback failed: %v", err)
		return Intent{}, false
	}

	var reply backendReply
	if err := json.Unmarshal([]byte(resp), &reply); err != nil {
		logging.Get(logging.CategoryLLM).Warnf("unparseable backend reply: %v", err)
		return Intent{}, false
	}

	kind := Kind(reply.Kind)
	if !validKind(kind) {
		logging.Get(logging.CategoryLLM).Warnf("backend returned unknown kind %q", reply.Kind)
		return Intent{}, false
	}

	conf := reply.Confidence
	if conf <= 0 || conf > 1 {
		conf = 0.5
	}
	if reply.Params == nil {
		reply.Params = make(map[string]string)
	}

	return Intent{
		Kind:       kind,
		Params:     reply.Params,
		Confidence: conf,
		Raw:        raw,
		Timestamp:  time.Now(),
	}, true
}

func validKind(k Kind) bool {
	for _, known := range All() {
		if k == known {
			return true
		}
	}
	return false
}

// buildPrompt serializes the session context into a classification prompt.
func buildPrompt(raw string, sctx Context) string {
	var b strings.Builder
	b.WriteString("You map a desktop assistant command to a JSON intent.\n")
	b.WriteString("Reply with exactly one JSON object: ")
	b.WriteString(`{"kind": "<kind>", "params": {..}, "confidence": 0.0-1.0}` + "\n")
	b.WriteString("Valid kinds: ")
	kinds := All()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n")

	if sctx != nil {
		fmt.Fprintf(&b, "Current location: %s\n", sctx.CurrentLocation())
		if recent := sctx.RecentSummary(5); len(recent) > 0 {
			b.WriteString("Recent commands:\n")
			for _, r := range recent {
				fmt.Fprintf(&b, "  - %s\n", r)
			}
		}
	}

	fmt.Fprintf(&b, "Command: %s\n", raw)
	return b.String()
}
