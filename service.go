package typsync

import (
	"context"
	"fmt"
)

// Service runs the preprocessing pipeline. A single Service is safe for
// concurrent use: every call operates on fresh per-invocation state.
type Service struct {
	cfg serviceConfig
}

// New creates a Service with default configuration.
// Use options to customize behavior (e.g., WithMaxDocumentSize).
func New(opts ...Option) *Service {
	s := &Service{
		cfg: serviceConfig{maxDocumentSize: defaultMaxDocumentSize},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preprocess transforms markdown for Typst rendering: frontmatter is
// split off and preserved verbatim, citations are rewritten when a
// bibliography is attached, tables get their required blank line, and
// anchors are injected. The context is checked between stages.
func (s *Service) Preprocess(ctx context.Context, input Input) (*Result, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frontmatter, content := SplitFrontmatter(input.Markdown)

	if input.HasBibliography {
		content = RewriteCitations(content)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content = EnsureBlankBeforeTables(content)

	result, err := injectAnchors(content)
	if err != nil {
		return nil, fmt.Errorf("injecting anchors: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if frontmatter != "" {
		result.Markdown = frontmatter + "\n" + result.Markdown

		// Shift every offset by the exact bytes prepended, then derive
		// line/column from the final buffer. Incrementing line/column
		// directly would go wrong whenever the boundary spans newlines.
		shift := len(frontmatter) + 1
		for i := range result.Anchors {
			result.Anchors[i].Offset += shift
			line, column := OffsetToLineColumn(result.Markdown, result.Anchors[i].Offset)
			result.Anchors[i].Line = line
			result.Anchors[i].Column = column
		}
	}

	return result, nil
}

// validateInput checks that required fields are present and sized.
func (s *Service) validateInput(input Input) error {
	if input.Markdown == "" {
		return ErrEmptyMarkdown
	}
	if len(input.Markdown) > s.cfg.maxDocumentSize {
		return fmt.Errorf("%w: %d bytes (max %d)",
			ErrDocumentTooBig, len(input.Markdown), s.cfg.maxDocumentSize)
	}
	return nil
}

// Preprocess is a convenience wrapper around a default Service.
func Preprocess(ctx context.Context, markdown string, hasBibliography bool) (*Result, error) {
	return New().Preprocess(ctx, Input{
		Markdown:        markdown,
		HasBibliography: hasBibliography,
	})
}
