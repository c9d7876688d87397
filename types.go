package typsync

// Anchor id namespace constants.
const (
	// AnchorPrefix is the reserved namespace for synthetic anchor ids.
	// Heading anchors use bare slugs instead so they remain usable as
	// human-facing link targets.
	AnchorPrefix = "ts-"

	// DocStartAnchorID is the id of the anchor every document begins with.
	DocStartAnchorID = AnchorPrefix + "doc-start"
)

// EditorPosition locates an anchor in the source markdown buffer.
// Line is zero-based; Column counts runes, not bytes. Both are derived
// from Offset against the final buffer, never adjusted independently.
type EditorPosition struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// PDFPosition locates an anchor in the rendered output.
// Page is 1-based.
type PDFPosition struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// AnchorMeta records one injected anchor during preprocessing.
// Immutable once produced by the injector, except for the frontmatter
// offset shift applied by Preprocess.
type AnchorMeta struct {
	ID     string `json:"id"`
	Offset int    `json:"offset"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// AnchorEntry joins an anchor's editor position with its rendered
// position. PDF is nil when the renderer did not report the anchor.
type AnchorEntry struct {
	ID     string         `json:"id"`
	Editor EditorPosition `json:"editor"`
	PDF    *PDFPosition   `json:"pdf,omitempty"`
}

// SourceMapPayload is the complete source map for one document, in
// document order of the anchors.
type SourceMapPayload struct {
	Anchors []AnchorEntry `json:"anchors"`
}

// Input carries the parameters for one preprocessing call.
type Input struct {
	Markdown string // markdown content (required)

	// HasBibliography gates citation rewriting. Rewriting without a
	// bibliography attached makes the renderer fail on the cite calls,
	// so [@key] markers pass through untouched when this is false.
	HasBibliography bool
}

// Result is the preprocessor output: the transformed markdown and the
// anchors injected into it, in ascending offset order.
type Result struct {
	Markdown string       `json:"markdown"`
	Anchors  []AnchorMeta `json:"anchors"`
}

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	maxDocumentSize int
}

// defaultMaxDocumentSize bounds input documents (16 MiB).
const defaultMaxDocumentSize = 16 << 20

// WithMaxDocumentSize caps the accepted markdown size in bytes.
// Panics if n <= 0 (programmer error, similar to time.NewTicker).
func WithMaxDocumentSize(n int) Option {
	if n <= 0 {
		panic("typsync: WithMaxDocumentSize must be positive")
	}
	return func(s *Service) {
		s.cfg.maxDocumentSize = n
	}
}
