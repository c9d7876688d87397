package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"

	typsync "github.com/typsync/typsync"
)

// run executes one preprocessing pass: read, preprocess, write the
// transformed markdown, and optionally emit anchors or a joined source
// map. progress goes to stderr unless --quiet.
func run(ctx context.Context, flags *cliFlags, stdout io.Writer) error {
	raw, err := os.ReadFile(flags.input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	hasBib, err := resolveBibliography(flags, string(raw))
	if err != nil {
		return err
	}

	svc := typsync.New()
	result, err := svc.Preprocess(ctx, typsync.Input{
		Markdown:        string(raw),
		HasBibliography: hasBib,
	})
	if err != nil {
		return err
	}

	if !flags.quiet {
		fmt.Fprintf(os.Stderr, "typsync: %d anchors injected\n", len(result.Anchors))
	}

	if err := writeMarkdown(flags.out, result.Markdown, stdout); err != nil {
		return err
	}

	if flags.query != "" {
		return writeSourceMap(flags, result, stdout)
	}
	if flags.anchors != "" {
		return writeJSON(flags.anchors, result.Anchors)
	}
	return nil
}

// resolveBibliography decides whether citations get rewritten: explicit
// flags win, otherwise the frontmatter's bibliography key decides.
func resolveBibliography(flags *cliFlags, markdown string) (bool, error) {
	switch {
	case flags.noBib:
		return false, nil
	case flags.bib:
		return true, nil
	}

	frontmatter, _ := typsync.SplitFrontmatter(markdown)
	meta, err := typsync.ParseMeta(frontmatter)
	if err != nil {
		if errors.Is(err, typsync.ErrNoFrontmatter) {
			return false, nil
		}
		// Malformed frontmatter is a document problem, not a CLI
		// failure; fall back to no bibliography.
		if flags.verbose {
			fmt.Fprintf(os.Stderr, "typsync: ignoring frontmatter: %v\n", err)
		}
		return false, nil
	}
	return meta.HasBibliography(), nil
}

// writeSourceMap parses the typst query output and joins it with the
// anchors into a full source map.
func writeSourceMap(flags *cliFlags, result *typsync.Result, stdout io.Writer) error {
	queryJSON, err := os.ReadFile(flags.query)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadQuery, err)
	}

	positions, err := typsync.ParsePositionQuery(queryJSON)
	if err != nil {
		return err
	}

	payload := typsync.BuildSourceMap(result.Anchors, positions)
	if flags.anchors == "" {
		return encodeJSON(stdout, payload)
	}
	return writeJSON(flags.anchors, payload)
}

func writeMarkdown(path, content string, stdout io.Writer) error {
	if path == "-" {
		if _, err := io.WriteString(stdout, content); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
