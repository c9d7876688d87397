package typsync

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/typsync/typsync/internal/yamlutil"
)

// SplitFrontmatter isolates a leading YAML frontmatter block.
//
// Returns (frontmatter, content) where frontmatter includes both ---
// delimiter lines and the trailing newline. When the document does not
// begin with a delimiter, or the closing delimiter is missing, the whole
// input is returned as content with an empty frontmatter. Absence of
// frontmatter is a valid outcome, not an error.
func SplitFrontmatter(markdown string) (frontmatter, content string) {
	trimmed := strings.TrimLeftFunc(markdown, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, "---") {
		return "", markdown
	}

	start := len(markdown) - len(trimmed)
	afterOpen := markdown[start+3:]

	end := strings.Index(afterOpen, "\n---")
	if end < 0 {
		return "", markdown
	}

	// Include the closing --- line.
	final := start + 3 + end + 4
	if final < len(markdown) && markdown[final] == '\n' {
		final++
	}

	return markdown[:final], markdown[final:]
}

// Meta holds the render settings a document carries in its frontmatter.
// All fields are optional; absent keys keep their zero values.
type Meta struct {
	Title         string  `yaml:"title"`
	Author        string  `yaml:"author"`
	PaperSize     string  `yaml:"papersize"`
	MarginX       float64 `yaml:"margin_x"`
	MarginY       float64 `yaml:"margin_y"`
	FontSize      float64 `yaml:"fontsize"`
	TOC           bool    `yaml:"toc"`
	Numbering     string  `yaml:"numbering"`
	Bibliography  string  `yaml:"bibliography"`
	CitationStyle string  `yaml:"citation_style"`
}

// HasBibliography reports whether the frontmatter names a bibliography
// file, which callers typically use to gate citation rewriting.
func (m *Meta) HasBibliography() bool {
	return m != nil && strings.TrimSpace(m.Bibliography) != ""
}

// ParseMeta decodes the YAML body of a frontmatter block produced by
// SplitFrontmatter. An empty frontmatter yields ErrNoFrontmatter; an
// empty body between the delimiters yields a zero Meta.
func ParseMeta(frontmatter string) (*Meta, error) {
	trimmed := strings.TrimSpace(frontmatter)
	if trimmed == "" {
		return nil, ErrNoFrontmatter
	}

	body := trimmed
	body = strings.TrimPrefix(body, "---")
	if idx := strings.LastIndex(body, "\n---"); idx >= 0 {
		body = body[:idx]
	}
	body = strings.TrimSpace(body)

	meta := &Meta{}
	if body == "" {
		return meta, nil
	}
	if err := yamlutil.Unmarshal([]byte(body), meta); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	return meta, nil
}
