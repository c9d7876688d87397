package typsync

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"
)

// insertion is a pending markup fragment to splice into the buffer.
// All insertions reference offsets in the same pre-injection snapshot.
type insertion struct {
	offset int
	text   string
}

// injectAnchors rewrites markdown with invisible Typst label anchors and
// returns the rewritten buffer plus one AnchorMeta per accepted marker,
// in ascending offset order.
func injectAnchors(markdown string) (*Result, error) {
	source := []byte(markdown)
	seq, err := scanConstructs(source)
	if err != nil {
		return nil, err
	}

	ctx := newInjectionContext(source)
	ctx.addDocStartAnchor()
	for c, ok := seq.Next(); ok; c, ok = seq.Next() {
		ctx.handle(c)
	}
	return ctx.buildOutput(), nil
}

// injectionContext tracks all mutable state for one injection pass.
// Never reuse across documents; every invocation constructs one fresh.
type injectionContext struct {
	source     []byte
	insertions []insertion
	anchors    []AnchorMeta

	// seenOffsets dedups by insertion point: first writer wins.
	seenOffsets map[int]struct{}

	// slugCounts dedups heading slugs GitHub-style (base, base-1, ...).
	slugCounts map[string]int

	tableDepth     int
	codeBlockCount int
	imageCount     int
	hrCount        int
}

func newInjectionContext(source []byte) *injectionContext {
	return &injectionContext{
		source:      source,
		seenOffsets: make(map[int]struct{}),
		slugCounts:  make(map[string]int),
	}
}

// addDocStartAnchor places the reserved document-start marker at offset
// zero, before any construct is considered.
func (c *injectionContext) addDocStartAnchor() {
	markup := buildAnchorMarkup(c.source, 0, DocStartAnchorID, false)
	c.insertions = append(c.insertions, insertion{offset: 0, text: markup})
	c.anchors = append(c.anchors, AnchorMeta{ID: DocStartAnchorID})
	c.seenOffsets[0] = struct{}{}
}

func (c *injectionContext) handle(ev construct) {
	switch ev.kind {
	case constructHeading:
		c.handleHeading(ev)

	case constructRule:
		c.hrCount++
		id := fmt.Sprintf("%shr-%d", AnchorPrefix, c.hrCount)
		c.tryAddAnchor(lineStartAt(c.source, ev.offset), ev.offset, id)

	case constructCodeBlock:
		c.handleCodeBlock(ev)

	case constructImage:
		c.handleImage(ev)

	case constructTableEnter:
		c.tableDepth++

	case constructTableLeave:
		if c.tableDepth > 0 {
			c.tableDepth--
		}

	case constructBlock:
		c.handleGenericBlock(ev)
	}
}

// handleHeading slugs the heading text (or its explicit id), dedups the
// slug, and places an inline marker at the end of the heading's line so
// the heading markup itself stays untouched.
func (c *injectionContext) handleHeading(ev construct) {
	base := ev.explicitID
	if base == "" {
		base = slugify(ev.text)
	}
	if base == "" {
		return
	}

	count := c.slugCounts[base]
	slug := base
	if count > 0 {
		slug = fmt.Sprintf("%s-%d", base, count)
	}
	c.slugCounts[base] = count + 1

	insertionPoint := lineEndAt(c.source, ev.offset)
	if _, seen := c.seenOffsets[insertionPoint]; seen {
		return
	}
	c.seenOffsets[insertionPoint] = struct{}{}
	c.insertions = append(c.insertions, insertion{
		offset: insertionPoint,
		text:   buildAnchorMarkup(c.source, insertionPoint, slug, true),
	})

	line, column := OffsetToLineColumn(string(c.source), ev.offset)
	c.anchors = append(c.anchors, AnchorMeta{
		ID:     slug,
		Offset: ev.offset,
		Line:   line,
		Column: column,
	})
}

func (c *injectionContext) handleCodeBlock(ev construct) {
	c.codeBlockCount++
	lang := ""
	if ev.language != "" {
		first, _, _ := strings.Cut(ev.language, " ")
		lang = "-" + first
	}
	id := fmt.Sprintf("%scode%s%d", AnchorPrefix, lang, c.codeBlockCount)
	c.tryAddAnchor(lineStartAt(c.source, ev.offset), ev.offset, id)
}

func (c *injectionContext) handleImage(ev construct) {
	c.imageCount++

	// Identifier from the destination's filename stem, keeping only
	// identifier-safe characters and capping at 20.
	name := ev.dest
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name, _, _ = strings.Cut(name, ".")
	var stem strings.Builder
	for _, r := range name {
		if stem.Len() >= 20 {
			break
		}
		if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			stem.WriteRune(r)
		}
	}

	var id string
	if stem.Len() == 0 {
		id = fmt.Sprintf("%simg-%d", AnchorPrefix, c.imageCount)
	} else {
		id = fmt.Sprintf("%simg-%s-%d", AnchorPrefix, stem.String(), c.imageCount)
	}
	c.tryAddAnchor(lineStartAt(c.source, ev.offset), ev.offset, id)
}

// handleGenericBlock anchors paragraphs, lists, and footnote definitions
// at their line start. Suppressed inside tables, and on lines already
// owned by blockquote or table syntax.
func (c *injectionContext) handleGenericBlock(ev construct) {
	if c.tableDepth > 0 {
		return
	}

	lineStart := lineStartAt(c.source, ev.offset)
	if c.isSpecialLine(lineStart) {
		return
	}

	// Offset plus running anchor count: unique without semantic meaning.
	id := fmt.Sprintf("%s%d-%d", AnchorPrefix, ev.offset, len(c.anchors))
	c.tryAddAnchor(lineStart, ev.offset, id)
}

// tryAddAnchor accepts a marker unless its insertion point is already
// taken. Insertion offset is where markup is spliced; source offset only
// feeds the line/column metadata.
func (c *injectionContext) tryAddAnchor(insertionOffset, sourceOffset int, id string) bool {
	if _, seen := c.seenOffsets[insertionOffset]; seen {
		return false
	}
	c.seenOffsets[insertionOffset] = struct{}{}

	c.insertions = append(c.insertions, insertion{
		offset: insertionOffset,
		text:   buildAnchorMarkup(c.source, insertionOffset, id, false),
	})

	line, column := OffsetToLineColumn(string(c.source), sourceOffset)
	c.anchors = append(c.anchors, AnchorMeta{
		ID:     id,
		Offset: sourceOffset,
		Line:   line,
		Column: column,
	})
	return true
}

// isSpecialLine reports whether the line belongs to blockquote or table
// syntax, which have their own handling.
func (c *injectionContext) isSpecialLine(lineStart int) bool {
	end := lineEndAt(c.source, lineStart)
	trimmed := strings.TrimLeft(string(c.source[lineStart:end]), " \t")
	return strings.HasPrefix(trimmed, ">") || strings.HasPrefix(trimmed, "|")
}

// buildOutput splices all accepted insertions into the buffer. Insertions
// are sorted ascending, then applied from the highest offset backward so
// splices never shift the offsets of insertions not yet applied.
func (c *injectionContext) buildOutput() *Result {
	sort.SliceStable(c.insertions, func(i, j int) bool {
		return c.insertions[i].offset < c.insertions[j].offset
	})

	out := make([]byte, len(c.source), len(c.source)+insertionLen(c.insertions))
	copy(out, c.source)
	for i := len(c.insertions) - 1; i >= 0; i-- {
		out = slices.Insert(out, c.insertions[i].offset, []byte(c.insertions[i].text)...)
	}

	// Footnote definitions surface out of source order; restore strict
	// document order for the anchor list.
	sort.SliceStable(c.anchors, func(i, j int) bool {
		return c.anchors[i].Offset < c.anchors[j].Offset
	})

	return &Result{Markdown: string(out), Anchors: c.anchors}
}

func insertionLen(ins []insertion) int {
	n := 0
	for _, i := range ins {
		n += len(i.text)
	}
	return n
}

// buildAnchorMarkup renders the invisible marker envelope. Block markers
// sit on their own line; inline markers get a single leading space.
func buildAnchorMarkup(source []byte, offset int, id string, inline bool) string {
	var sb strings.Builder

	if offset > 0 && !inline && source[offset-1] != '\n' {
		sb.WriteByte('\n')
	}
	if inline {
		sb.WriteByte(' ')
	}

	sb.WriteString(`<!--raw-typst #label("`)
	sb.WriteString(id)
	sb.WriteString(`") -->`)

	if !inline {
		sb.WriteByte('\n')
	}
	return sb.String()
}

// slugify converts heading text to a GitHub-style slug: alphanumerics
// lower-cased, separators mapped to hyphens, everything else dropped,
// runs collapsed, edges trimmed.
func slugify(text string) string {
	var raw strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			raw.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r), r == '-', r == '/', r == '\\', r == '—', r == '–':
			raw.WriteByte('-')
		}
	}

	var out strings.Builder
	prevDash := false
	for _, r := range raw.String() {
		if r == '-' {
			if !prevDash {
				out.WriteRune(r)
				prevDash = true
			}
			continue
		}
		out.WriteRune(r)
		prevDash = false
	}

	return strings.Trim(out.String(), "-")
}
