package typsync

import "strings"

// EnsureBlankBeforeTables inserts a blank line before any table that
// immediately follows non-blank content. The downstream markdown parse
// only recognizes a table when it is separated from the preceding block,
// so a paragraph running straight into a | row would otherwise swallow
// the table. Operates line by line and touches nothing else; a table on
// the very first line is left alone.
func EnsureBlankBeforeTables(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines)+8)

	for i, line := range lines {
		isTableLine := strings.HasPrefix(strings.TrimLeft(line, " \t"), "|")

		// Table start: a | line whose predecessor is not a | line.
		isTableStart := isTableLine &&
			(i == 0 || !strings.HasPrefix(strings.TrimLeft(lines[i-1], " \t"), "|"))

		if isTableStart && i > 0 && strings.TrimSpace(lines[i-1]) != "" {
			result = append(result, "")
		}

		result = append(result, line)
	}

	return strings.Join(result, "\n")
}
