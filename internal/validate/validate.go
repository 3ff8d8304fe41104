// Answer grading for quiz rounds.
//
// Everything in this package is a pure function: answers come in as decoded
// JSON values (string, float64, bool, []any), grading produces Results, and
// the caller decides what to do with them. No I/O, no clocks, no goroutines.
package validate

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// AnswerType selects the comparison strategy for a round's answers.
type AnswerType string

const (
	TypeNumber         AnswerType = "number"
	TypeText           AnswerType = "text"
	TypeMultipleChoice AnswerType = "multiple-choice"
	TypeBoolean        AnswerType = "boolean"
	TypeArray          AnswerType = "array"
)

// Options tune how an answer is matched against the expected value.
type Options struct {
	// Tolerance is the maximum absolute difference accepted for number answers.
	Tolerance float64
	// Acceptable lists extra variant spellings accepted for text answers.
	Acceptable []string
	// Fuzzy enables edit-distance matching for text answers.
	Fuzzy bool
	// OrderInsensitive compares array answers as multisets.
	OrderInsensitive bool
}

// Answer reports whether a player's answer matches the expected one under the
// declared type. Unknown types never match.
func Answer(player, correct any, typ AnswerType, opts Options) bool {
	switch typ {
	case TypeNumber:
		p, okP := toNumber(player)
		c, okC := toNumber(correct)
		if !okP || !okC {
			return false
		}
		return math.Abs(p-c) <= opts.Tolerance
	case TypeText:
		p := normalize(player)
		if p == "" {
			return false
		}
		candidates := append([]string{normalize(correct)}, opts.Acceptable...)
		for _, c := range candidates {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" {
				continue
			}
			if p == c {
				return true
			}
			if opts.Fuzzy && FuzzyTextMatch(p, c) {
				return true
			}
		}
		return false
	case TypeMultipleChoice:
		return normalize(player) != "" && normalize(player) == normalize(correct)
	case TypeBoolean:
		p, okP := toBool(player)
		c, okC := toBool(correct)
		return okP && okC && p == c
	case TypeArray:
		return arraysMatch(player, correct, opts.OrderInsensitive)
	default:
		return false
	}
}

// FuzzyTextMatch accepts near-miss spellings: the edit distance between the
// two strings must not exceed max(2, floor(0.15 * longer length)).
func FuzzyTextMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	threshold := longer * 15 / 100
	if threshold < 2 {
		threshold = 2
	}
	return editDistance(a, b) <= threshold
}

// editDistance is the classic Levenshtein dynamic program, O(len(a)*len(b)).
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func normalize(v any) string {
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return ""
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toBool normalizes the many spellings clients send for boolean answers.
// Unparseable input is reported as indeterminate, which grades as a non-match.
func toBool(v any) (value, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		if t == 1 {
			return true, true
		}
		if t == 0 {
			return false, true
		}
		return false, false
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "t", "yes", "y", "1":
			return true, true
		case "false", "f", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

func arraysMatch(player, correct any, orderInsensitive bool) bool {
	p, okP := toStringSlice(player)
	c, okC := toStringSlice(correct)
	if !okP || !okC || len(p) != len(c) {
		return false
	}
	if orderInsensitive {
		sort.Strings(p)
		sort.Strings(c)
	}
	for i := range p {
		if p[i] != c[i] {
			return false
		}
	}
	return true
}

func toStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out, true
	case []string:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = strings.ToLower(strings.TrimSpace(e))
		}
		return out, true
	default:
		return nil, false
	}
}
