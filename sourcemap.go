package typsync

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// BuildSourceMap joins anchor metadata with rendered positions by id.
// Every anchor appears exactly once, in input order; anchors the renderer
// did not report keep a nil PDF position. Missing geometry is expected,
// never an error.
func BuildSourceMap(anchors []AnchorMeta, positions map[string]PDFPosition) SourceMapPayload {
	entries := make([]AnchorEntry, 0, len(anchors))
	for _, a := range anchors {
		entry := AnchorEntry{
			ID: a.ID,
			Editor: EditorPosition{
				Offset: a.Offset,
				Line:   a.Line,
				Column: a.Column,
			},
		}
		if pos, ok := positions[a.ID]; ok {
			p := pos
			entry.PDF = &p
		}
		entries = append(entries, entry)
	}
	return SourceMapPayload{Anchors: entries}
}

// ParsePositionQuery extracts anchor positions from Typst query output.
// The JSON shape varies across Typst versions, so each report entry is
// searched recursively: first for a label, then for geometry via the
// fallback order location, page+position/point/pos, rect. Entries with no
// recoverable position are skipped.
func ParsePositionQuery(data []byte) (map[string]PDFPosition, error) {
	var value any
	if err := sonic.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}

	positions := make(map[string]PDFPosition)
	entries, ok := value.([]any)
	if !ok {
		return positions, nil
	}

	for _, entry := range entries {
		label, ok := findLabel(entry)
		if !ok || !isAnchorLabel(label) {
			continue
		}
		if pos, ok := findLocation(entry); ok {
			positions[label] = pos
		}
	}
	return positions, nil
}

// isAnchorLabel accepts the synthetic namespace by prefix, and bare
// heading slugs by shape. User-defined labels that happen to be
// slug-shaped are harmless: the source-map join only consults ids that
// exist in the anchor list.
func isAnchorLabel(label string) bool {
	if label == "" {
		return false
	}
	if len(label) >= len(AnchorPrefix) && label[:len(AnchorPrefix)] == AnchorPrefix {
		return true
	}
	for _, r := range label {
		isSlugRune := r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isSlugRune {
			return false
		}
	}
	return true
}

// queryChildKeys are the object fields a label may nest under, in the
// order they are tried.
var queryChildKeys = [...]string{"value", "target", "node", "fields"}

// findLabel recursively searches a decoded JSON value for a string
// "label" field.
func findLabel(value any) (string, bool) {
	switch v := value.(type) {
	case map[string]any:
		if label, ok := v["label"].(string); ok {
			return label, true
		}
		for _, key := range queryChildKeys {
			if child, ok := v[key]; ok {
				if label, found := findLabel(child); found {
					return label, true
				}
			}
		}
	case []any:
		for _, item := range v {
			if label, found := findLabel(item); found {
				return label, true
			}
		}
	}
	return "", false
}

// findLocation recursively searches for page/x/y geometry. First match
// wins; multiple matches within one entry are never aggregated.
func findLocation(value any) (PDFPosition, bool) {
	switch v := value.(type) {
	case map[string]any:
		if loc, ok := v["location"]; ok {
			if pos, found := extractPageXY(loc); found {
				return pos, true
			}
		}
		if pos, found := extractPageXY(v); found {
			return pos, true
		}
		// Deterministic descent: Go maps iterate in random order, so
		// visit keys sorted to keep "first match wins" stable.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if pos, found := findLocation(v[k]); found {
				return pos, true
			}
		}
	case []any:
		for _, item := range v {
			if pos, found := findLocation(item); found {
				return pos, true
			}
		}
	}
	return PDFPosition{}, false
}

// extractPageXY reads a page number and x/y pair out of one object,
// trying a position/point/pos sub-object, then a rect array.
func extractPageXY(value any) (PDFPosition, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return PDFPosition{}, false
	}

	page := 1
	if raw, ok := obj["page"]; ok {
		if n, ok := asNumber(raw); ok && int(n) > 0 {
			page = int(n)
		}
	}

	for _, key := range [...]string{"position", "point", "pos"} {
		if sub, ok := obj[key].(map[string]any); ok {
			x, _ := asNumber(sub["x"])
			y, _ := asNumber(sub["y"])
			return PDFPosition{Page: page, X: x, Y: y}, true
		}
	}

	if rect, ok := obj["rect"].([]any); ok && len(rect) >= 2 {
		x, _ := asNumber(rect[0])
		y, _ := asNumber(rect[1])
		return PDFPosition{Page: page, X: x, Y: y}, true
	}

	return PDFPosition{}, false
}

// asNumber tolerates JSON numbers and numeric strings; anything else
// (including absence) reads as zero.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
