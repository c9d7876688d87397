// Package typsync rewrites Markdown for Typst rendering by injecting
// invisible anchor labels, and maps positions between the editor buffer and
// the rendered output.
//
// # Quick Start
//
// Create a service and preprocess a document:
//
//	svc := typsync.New()
//	result, err := svc.Preprocess(ctx, typsync.Input{
//	    Markdown: "# Hello\n\nWorld",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// result.Markdown carries anchors like <!--raw-typst #label("hello") -->
//	// result.Anchors records each anchor's byte offset, line, and column.
//
// Hand result.Markdown to the Typst toolchain, query it for label
// positions, and join the two sides:
//
//	positions, err := typsync.ParsePositionQuery(queryJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	payload := typsync.BuildSourceMap(result.Anchors, positions)
//
// # Preprocessing Pipeline
//
// Preprocess runs these stages in order:
//
//  1. Frontmatter split (the delimited YAML block is preserved verbatim)
//  2. Citation rewriting ([@key] to #cite calls, only with a bibliography)
//  3. Table normalization (blank line inserted before adjoining tables)
//  4. Anchor injection over the goldmark event stream
//  5. Frontmatter re-attachment with exact offset adjustment
//
// Anchor identifiers are unique per document. Headings get bare
// GitHub-style slugs so they stay usable as link targets; every other
// anchor lives in the reserved "ts-" namespace.
//
// # Position Queries
//
// ParsePositionQuery tolerates the varying JSON shapes emitted by
// different Typst versions: it recursively locates a "label" field and
// then a page/x/y triple, trying a location object, then a
// position/point/pos object, then a rect array. Anchors the renderer did
// not report simply have no PDF position in the source map; that is an
// expected outcome, not an error.
package typsync
