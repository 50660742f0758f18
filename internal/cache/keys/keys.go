package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const handoffNamespace = "farmselect:handoff"

// Handoff is the store key for a navigation handoff token.
func Handoff(token string) string {
	return handoffNamespace + ":" + sanitizeForKey(strings.TrimSpace(token))
}

// EventID derives a stable id for one submission attempt of a session so
// consumers can drop duplicates.
func EventID(sessionID string, requestToken uint64) string {
	d := xxhash.New()
	_, _ = d.WriteString(sessionID)
	_, _ = d.WriteString("#")
	_, _ = d.WriteString(strconv.FormatUint(requestToken, 10))
	return fmt.Sprintf("%016x", d.Sum64())
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including ':' and non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
