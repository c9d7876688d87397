package typsync

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown   = errors.New("markdown content cannot be empty")
	ErrInvalidMarkdown = errors.New("markdown cannot be tokenized")
	ErrMalformedQuery  = errors.New("position query is not valid JSON")
	ErrNoFrontmatter   = errors.New("document has no frontmatter")
	ErrDocumentTooBig  = errors.New("document exceeds maximum size")
)
