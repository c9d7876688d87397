package typsync

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// constructKind enumerates the closed set of markdown constructs the
// injector reacts to. Everything else in the document is invisible to
// anchor placement.
type constructKind int

const (
	constructHeading constructKind = iota
	constructRule
	constructCodeBlock
	constructImage
	constructBlock
	constructTableEnter
	constructTableLeave
)

// construct is one event in the document-ordered construct sequence.
// offset is the construct's source byte offset; table enter/leave events
// carry no offset.
type construct struct {
	kind       constructKind
	offset     int
	text       string // accumulated heading inline text
	explicitID string // heading {#id} attribute
	language   string // fence info first word
	dest       string // image destination
}

// constructSeq is a restartable, finite, single-pass producer of
// construct events in document order.
type constructSeq struct {
	items []construct
	next  int
}

// Next returns the next construct event, or false when exhausted.
func (s *constructSeq) Next() (construct, bool) {
	if s.next >= len(s.items) {
		return construct{}, false
	}
	c := s.items[s.next]
	s.next++
	return c, true
}

// Reset rewinds the sequence to the first event.
func (s *constructSeq) Reset() {
	s.next = 0
}

// Horizontal rule and code fence line shapes, used for constructs whose
// goldmark nodes carry no source segment.
var (
	rulePattern  = regexp.MustCompile(`(?m)^ {0,3}(?:(?:\*[ \t]*){3,}|(?:-[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	fencePattern = regexp.MustCompile("(?m)^ {0,3}(?:```|~~~)")
)

// newMarkdownParser configures the goldmark parser used for anchor
// injection: GFM tables, strikethrough and task lists, footnotes, and
// heading {#id} attributes.
func newMarkdownParser() parser.Parser {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(), // heading {#custom-id}
		),
	).Parser()
}

// scanConstructs parses the markdown and flattens the syntax tree into a
// document-ordered construct sequence. The only hard failure is input
// that cannot be tokenized (invalid UTF-8); malformed constructs are
// silently skipped.
func scanConstructs(source []byte) (*constructSeq, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrInvalidMarkdown)
	}

	sc := &constructScanner{source: source}
	root := newMarkdownParser().Parse(text.NewReader(source))

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		return sc.visit(n, entering), nil
	})

	return &constructSeq{items: sc.items}, nil
}

// constructScanner accumulates construct events during one AST walk.
// cursor tracks the furthest resolved source offset so that constructs
// without segments (rules, bare fences) can be located by forward scan.
type constructScanner struct {
	source []byte
	items  []construct
	cursor int
}

func (sc *constructScanner) visit(n ast.Node, entering bool) ast.WalkStatus {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			sc.scanHeading(node)
		}

	case *ast.ThematicBreak:
		if entering {
			sc.scanRule()
		}

	case *ast.FencedCodeBlock:
		if entering {
			sc.scanFencedCode(node)
		}

	case *ast.CodeBlock:
		if entering {
			sc.scanIndentedCode(node)
		}

	case *ast.Image:
		if entering {
			sc.scanImage(node)
		}

	case *east.Table, *east.TableHeader, *east.TableRow, *east.TableCell:
		if entering {
			sc.items = append(sc.items, construct{kind: constructTableEnter})
		} else {
			sc.items = append(sc.items, construct{kind: constructTableLeave})
		}

	case *ast.Paragraph, *ast.List, *east.Footnote:
		if entering {
			sc.scanGenericBlock(n)
		}
	}

	return ast.WalkContinue
}

// scanHeading emits a heading construct with its accumulated inline text
// and explicit id, if any.
func (sc *constructScanner) scanHeading(n *ast.Heading) {
	seg := firstSegmentStart(sc.source, n)
	if seg < 0 {
		return
	}
	offset := constructStartOnLine(sc.source, seg)

	explicitID := ""
	if v, ok := n.AttributeString("id"); ok {
		switch id := v.(type) {
		case []byte:
			explicitID = string(id)
		case string:
			explicitID = id
		}
	}

	sc.items = append(sc.items, construct{
		kind:       constructHeading,
		offset:     offset,
		text:       collectInlineText(sc.source, n),
		explicitID: explicitID,
	})

	sc.bumpCursor(lastSegmentStop(n))
	// A setext heading's underline is the line after its text; advance
	// past it so a rule scan never mistakes the underline for an hr.
	if sc.source[offset] != '#' {
		sc.bumpCursor(lineEndAt(sc.source, sc.cursor) + 1)
	}
}

// scanRule locates the next horizontal-rule line at or after the cursor;
// goldmark keeps no position for thematic breaks.
func (sc *constructScanner) scanRule() {
	loc := rulePattern.FindIndex(sc.source[sc.cursor:])
	if loc == nil {
		return
	}
	offset := constructStartOnLine(sc.source, sc.cursor+loc[0])
	sc.items = append(sc.items, construct{kind: constructRule, offset: offset})
	sc.bumpCursor(sc.cursor + loc[1])
}

func (sc *constructScanner) scanFencedCode(n *ast.FencedCodeBlock) {
	var offset int
	switch {
	case n.Info != nil:
		offset = constructStartOnLine(sc.source, n.Info.Segment.Start)
	case n.Lines().Len() > 0:
		// The fence line immediately precedes the first content line.
		ls := lineStartAt(sc.source, n.Lines().At(0).Start)
		if ls > 0 {
			ls = lineStartAt(sc.source, ls-1)
		}
		offset = constructStartOnLine(sc.source, ls)
	default:
		loc := fencePattern.FindIndex(sc.source[sc.cursor:])
		if loc == nil {
			return
		}
		offset = constructStartOnLine(sc.source, sc.cursor+loc[0])
	}

	sc.items = append(sc.items, construct{
		kind:     constructCodeBlock,
		offset:   offset,
		language: string(n.Language(sc.source)),
	})

	sc.bumpCursor(offset)
	sc.bumpCursor(lastSegmentStop(n))
}

func (sc *constructScanner) scanIndentedCode(n *ast.CodeBlock) {
	if n.Lines().Len() == 0 {
		return
	}
	offset := lineStartAt(sc.source, n.Lines().At(0).Start)
	sc.items = append(sc.items, construct{kind: constructCodeBlock, offset: offset})
	sc.bumpCursor(lastSegmentStop(n))
}

func (sc *constructScanner) scanImage(n *ast.Image) {
	offset := firstSegmentStart(sc.source, n)
	if offset < 0 {
		// No alt text; fall back to the enclosing block's position.
		for p := n.Parent(); p != nil; p = p.Parent() {
			if offset = firstSegmentStart(sc.source, p); offset >= 0 {
				break
			}
		}
	}
	if offset < 0 {
		return
	}
	sc.items = append(sc.items, construct{
		kind:   constructImage,
		offset: offset,
		dest:   string(n.Destination),
	})
	sc.bumpCursor(offset)
}

func (sc *constructScanner) scanGenericBlock(n ast.Node) {
	seg := firstSegmentStart(sc.source, n)
	if seg < 0 {
		return
	}
	sc.items = append(sc.items, construct{
		kind:   constructBlock,
		offset: constructStartOnLine(sc.source, seg),
	})
	sc.bumpCursor(lastSegmentStop(n))
}

// bumpCursor advances the scan cursor monotonically; footnote definitions
// are walked out of source order, so the cursor never moves backward.
func (sc *constructScanner) bumpCursor(offset int) {
	if offset > sc.cursor {
		sc.cursor = offset
	}
	if sc.cursor > len(sc.source) {
		sc.cursor = len(sc.source)
	}
}

// firstSegmentStart returns the byte offset of the node's first source
// segment: its own first line for blocks, otherwise the first text
// descendant. Returns -1 when the node maps to no source bytes.
func firstSegmentStart(source []byte, n ast.Node) int {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	start := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock && c != n && c.Lines().Len() > 0 {
			start = c.Lines().At(0).Start
			return ast.WalkStop, nil
		}
		if t, ok := c.(*ast.Text); ok {
			start = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return start
}

// lastSegmentStop returns the end offset of the node's last known source
// segment, or -1.
func lastSegmentStop(n ast.Node) int {
	stop := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock && c.Lines().Len() > 0 {
			if s := c.Lines().At(c.Lines().Len() - 1).Stop; s > stop {
				stop = s
			}
		}
		if t, ok := c.(*ast.Text); ok {
			if t.Segment.Stop > stop {
				stop = t.Segment.Stop
			}
		}
		return ast.WalkContinue, nil
	})
	return stop
}

// collectInlineText concatenates the raw inline text of a node's
// descendants, the way heading text accumulates across parse events.
func collectInlineText(source []byte, n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// lineStartAt scans backward to the start of the line containing offset.
func lineStartAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset
}

// lineEndAt scans forward to the newline ending the line containing
// offset, or the end of the buffer.
func lineEndAt(source []byte, offset int) int {
	for offset < len(source) && source[offset] != '\n' {
		offset++
	}
	return offset
}

// constructStartOnLine returns the offset of the first non-blank byte on
// the line containing offset, which is where the construct's markup
// actually begins.
func constructStartOnLine(source []byte, offset int) int {
	pos := lineStartAt(source, offset)
	for pos < len(source) && (source[pos] == ' ' || source[pos] == '\t') {
		pos++
	}
	if pos >= len(source) || source[pos] == '\n' {
		return lineStartAt(source, offset)
	}
	return pos
}
