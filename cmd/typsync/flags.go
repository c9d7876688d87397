package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all parsed command-line options.
type cliFlags struct {
	input   string // positional: markdown file
	out     string // transformed markdown destination ("-" = stdout)
	anchors string // anchors / source-map JSON destination
	query   string // typst query JSON to join into a full source map

	bib   bool // force citation rewriting on
	noBib bool // force citation rewriting off, overriding frontmatter

	quiet   bool
	verbose bool
}

// parseFlags parses args (excluding the program name is the caller's
// job via pflag semantics; args includes argv[0]).
func parseFlags(args []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("typsync", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.out, "out", "o", "-", "output path for transformed markdown (- for stdout)")
	fs.StringVar(&f.anchors, "anchors", "", "write anchor metadata JSON to this path")
	fs.StringVar(&f.query, "query", "", "typst query JSON file to join into a source map")
	fs.BoolVar(&f.bib, "bib", false, "rewrite citations (default: auto-detect from frontmatter)")
	fs.BoolVar(&f.noBib, "no-bib", false, "never rewrite citations")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "suppress progress output")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "verbose progress output")

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: typsync [flags] <input.md>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, ErrUsage
	}
	f.input = fs.Arg(0)

	if f.bib && f.noBib {
		return nil, fmt.Errorf("%w: --bib and --no-bib are mutually exclusive", ErrUsage)
	}

	return f, nil
}
