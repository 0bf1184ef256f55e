// Package resolve picks one on-page entity (video, link, place) out of a
// list of candidates when a tool call under-specifies which one to act on.
// It is pure scoring and parsing logic with no browser dependency.
package resolve

import (
	"strconv"
	"strings"
)

// Candidate is one selectable entity extracted from the current page.
// Position is the zero-based order the entity appeared in.
type Candidate struct {
	Title    string `json:"title"`
	Context  string `json:"context,omitempty"` // channel name, aria label, id
	Snippet  string `json:"snippet,omitempty"`
	Position int    `json:"position"`
}

// Token weights. Title hits must outrank context hits, which must outrank
// snippet hits.
const (
	weightTitle   = 10
	weightContext = 6
	weightSnippet = 3
	bonusExact    = 8

	// minimum best score Resolve accepts as an unambiguous match
	acceptThreshold = 5

	maxListed    = 6
	maxAmbiguous = 4
)

// Score rates how well a candidate matches free-text query. Case-insensitive
// token overlap; a whole-query substring match against the title earns a
// fixed bonus on top.
func Score(c Candidate, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	title := strings.ToLower(c.Title)
	context := strings.ToLower(c.Context)
	snippet := strings.ToLower(c.Snippet)

	score := 0
	for _, tok := range strings.Fields(q) {
		if strings.Contains(title, tok) {
			score += weightTitle
		}
		if context != "" && strings.Contains(context, tok) {
			score += weightContext
		}
		if snippet != "" && strings.Contains(snippet, tok) {
			score += weightSnippet
		}
	}
	if strings.Contains(title, q) {
		score += bonusExact
	}
	return score
}

var ordinalWords = map[string]int{
	"first":  0,
	"second": 1,
	"third":  2,
	"fourth": 3,
	"fifth":  4,
}

// ParseOrdinal maps ordinal language to a zero-based index: "first".."fifth",
// suffixed digits ("1st", "22nd"), and bare 1-based integers. Returns
// (0, false) when the text is not ordinal-like.
func ParseOrdinal(text string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, false
	}
	if idx, ok := ordinalWords[s]; ok {
		return idx, true
	}
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if n, ok := parsePositive(strings.TrimSuffix(s, suffix)); ok && strings.HasSuffix(s, suffix) {
			return n - 1, true
		}
	}
	if n, ok := parsePositive(s); ok {
		return n - 1, true
	}
	return 0, false
}

func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Kind tags a Resolution.
type Kind int

const (
	// NotFound: the candidate list was empty.
	NotFound Kind = iota
	// Listed: no query and no selection were given; Options holds a preview.
	Listed
	// Selected: exactly one candidate won, in Chosen.
	Selected
	// Ambiguous: the query matched weakly or tied; Options holds the top ranks.
	Ambiguous
)

// Resolution is the outcome of one disambiguation attempt.
type Resolution struct {
	Kind    Kind
	Chosen  Candidate
	Options []Candidate
}

// Resolve picks a candidate. An ordinal selection always wins over fuzzy
// text because it is unambiguous by construction; fuzzy matching on query
// is the fallback for natural requests. With neither, a bounded preview is
// returned so the caller can ask the user.
func Resolve(candidates []Candidate, query, selection string) Resolution {
	if len(candidates) == 0 {
		return Resolution{Kind: NotFound}
	}

	if selection != "" {
		if idx, ok := ParseOrdinal(selection); ok && idx >= 0 && idx < len(candidates) {
			return Resolution{Kind: Selected, Chosen: candidates[idx]}
		}
	}

	if strings.TrimSpace(query) == "" {
		return Resolution{Kind: Listed, Options: top(candidates, nil, maxListed)}
	}

	scores := make([]int, len(candidates))
	best, bestAt, tied := -1, -1, false
	for i, c := range candidates {
		scores[i] = Score(c, query)
		switch {
		case scores[i] > best:
			best, bestAt, tied = scores[i], i, false
		case scores[i] == best:
			tied = true
		}
	}

	if best >= acceptThreshold && !tied {
		return Resolution{Kind: Selected, Chosen: candidates[bestAt]}
	}
	return Resolution{Kind: Ambiguous, Options: top(candidates, scores, maxAmbiguous)}
}

// top returns up to n candidates, ranked by score when given, otherwise in
// page order.
func top(candidates []Candidate, scores []int, n int) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	if scores != nil {
		order := make([]int, len(candidates))
		copy(order, scores)
		// insertion sort, stable on page order for equal scores
		for i := 1; i < len(ranked); i++ {
			c, s := ranked[i], order[i]
			j := i - 1
			for j >= 0 && order[j] < s {
				ranked[j+1], order[j+1] = ranked[j], order[j]
				j--
			}
			ranked[j+1], order[j+1] = c, s
		}
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
