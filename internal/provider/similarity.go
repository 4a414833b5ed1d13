package provider

import (
	"math"
	"strings"
	"unicode"
)

// Tokens lower-cases s, drops punctuation and splits it into words. Han,
// Hiragana, Katakana and Hangul characters become one token each since
// those scripts do not separate words with spaces.
func Tokens(s string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
			flush()
			out = append(out, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return out
}

// WordSimilarity is 1 - editDistance(a, b) / max(len(a), len(b)) over word
// tokens, in [0, 1]. Two empty inputs are identical.
func WordSimilarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	n := len(ta)
	if len(tb) > n {
		n = len(tb)
	}
	if n == 0 {
		return 1
	}
	return 1 - float64(editDistance(ta, tb))/float64(n)
}

func editDistance(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// percent maps a ratio onto a 0-100 score with one decimal.
func percent(ratio float64) float64 {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return math.Round(ratio*1000) / 10
}
