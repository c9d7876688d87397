package typsync

import (
	"fmt"
	"regexp"
	"strings"
)

// citationPattern matches a bracketed citation group like [@key],
// [@a; @b], or [@key, p. 42]. Nested brackets never form a citation.
var citationPattern = regexp.MustCompile(`\[@[^\[\]]*\]`)

// RewriteCitations converts bracketed citation groups into Typst #cite
// calls inside the raw-typst comment envelope. Callers must only invoke
// this when a bibliography is attached: a #cite call with no bibliography
// loaded is a fatal render error, whereas the untouched [@key] text is
// merely cosmetic.
func RewriteCitations(content string) string {
	return citationPattern.ReplaceAllStringFunc(content, rewriteCitationGroup)
}

// rewriteCitationGroup rewrites one bracket group. A group whose key
// trims to empty is returned unmodified; partial rewrites never happen.
func rewriteCitationGroup(match string) string {
	body := match[1 : len(match)-1]

	var calls []string
	switch {
	case strings.Contains(body, ";"):
		// Semicolon-separated entries become independent cite calls.
		for _, entry := range strings.Split(body, ";") {
			key := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(entry), "@"))
			if key == "" {
				continue
			}
			calls = append(calls, fmt.Sprintf("#cite(<%s>)", key))
		}

	case strings.Contains(body, ","):
		// The first comma splits key from a free-text supplement.
		idx := strings.Index(body, ",")
		key := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(body[:idx]), "@"))
		supplement := strings.TrimSpace(body[idx+1:])
		if key == "" {
			return match
		}
		if supplement == "" {
			calls = append(calls, fmt.Sprintf("#cite(<%s>)", key))
		} else {
			calls = append(calls, fmt.Sprintf("#cite(<%s>, supplement: [%s])", key, supplement))
		}

	default:
		key := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(body), "@"))
		if key == "" {
			return match
		}
		calls = append(calls, fmt.Sprintf("#cite(<%s>)", key))
	}

	if len(calls) == 0 {
		return match
	}
	return " <!--raw-typst " + strings.Join(calls, " ") + " -->"
}
