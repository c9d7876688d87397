package typsync

// OffsetToLineColumn converts a byte offset into a zero-based (line,
// column) pair. Columns count runes so multi-byte characters occupy a
// single column. Offsets beyond the buffer clamp to the end.
func OffsetToLineColumn(source string, offset int) (line, column int) {
	if offset > len(source) {
		offset = len(source)
	}
	for _, r := range source[:offset] {
		if r == '\n' {
			line++
			column = 0
		} else {
			column++
		}
	}
	return line, column
}

// AnchorsToLookup builds an id-keyed index of editor positions, used by
// callers that resolve a rendered position back to the editor.
func AnchorsToLookup(anchors []AnchorMeta) map[string]EditorPosition {
	lookup := make(map[string]EditorPosition, len(anchors))
	for _, a := range anchors {
		lookup[a.ID] = EditorPosition{
			Offset: a.Offset,
			Line:   a.Line,
			Column: a.Column,
		}
	}
	return lookup
}
