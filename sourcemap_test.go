package typsync

import (
	"errors"
	"testing"
)

func TestParsePositionQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want map[string]PDFPosition
	}{
		{
			name: "location with position object",
			data: `[{"label":"ts-doc-start","location":{"page":2,"position":{"x":10.5,"y":20.25}}}]`,
			want: map[string]PDFPosition{"ts-doc-start": {Page: 2, X: 10.5, Y: 20.25}},
		},
		{
			name: "top level page with pos object and numeric strings",
			data: `[{"label":"intro","page":"3","pos":{"x":"1.5","y":"2"}}]`,
			want: map[string]PDFPosition{"intro": {Page: 3, X: 1.5, Y: 2}},
		},
		{
			name: "point key variant",
			data: `[{"label":"ts-hr-1","page":4,"point":{"x":7,"y":8}}]`,
			want: map[string]PDFPosition{"ts-hr-1": {Page: 4, X: 7, Y: 8}},
		},
		{
			name: "rect array with page defaulting to one",
			data: `[{"label":"ts-code-go1","rect":[5,7,100,200]}]`,
			want: map[string]PDFPosition{"ts-code-go1": {Page: 1, X: 5, Y: 7}},
		},
		{
			name: "label nested under value",
			data: `[{"value":{"label":"ts-12-2"},"location":{"page":1,"position":{"x":3,"y":4}}}]`,
			want: map[string]PDFPosition{"ts-12-2": {Page: 1, X: 3, Y: 4}},
		},
		{
			name: "label nested under fields",
			data: `[{"node":{"fields":{"label":"hello-world"}},"location":{"position":{"x":1,"y":2}}}]`,
			want: map[string]PDFPosition{"hello-world": {Page: 1, X: 1, Y: 2}},
		},
		{
			name: "non anchor label skipped",
			data: `[{"label":"Not A Slug!","location":{"page":1,"position":{"x":1,"y":2}}}]`,
			want: map[string]PDFPosition{},
		},
		{
			name: "entry without label skipped",
			data: `[{"location":{"page":1,"position":{"x":1,"y":2}}}]`,
			want: map[string]PDFPosition{},
		},
		{
			name: "label without geometry skipped",
			data: `[{"label":"ts-doc-start","kind":"metadata"}]`,
			want: map[string]PDFPosition{},
		},
		{
			name: "mixed entries keep the recoverable ones",
			data: `[
				{"label":"ts-doc-start","location":{"page":1,"position":{"x":0,"y":0}}},
				{"label":"skip me"},
				{"label":"intro","rect":[9,10]}
			]`,
			want: map[string]PDFPosition{
				"ts-doc-start": {Page: 1},
				"intro":        {Page: 1, X: 9, Y: 10},
			},
		},
		{
			name: "non array json yields empty map",
			data: `{"kind":"report"}`,
			want: map[string]PDFPosition{},
		},
		{
			name: "empty array",
			data: `[]`,
			want: map[string]PDFPosition{},
		},
		{
			name: "zero or negative page falls back to one",
			data: `[{"label":"ts-hr-1","page":0,"pos":{"x":1,"y":1}}]`,
			want: map[string]PDFPosition{"ts-hr-1": {Page: 1, X: 1, Y: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePositionQuery([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParsePositionQuery() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("positions = %v, want %v", got, tt.want)
			}
			for id, pos := range tt.want {
				if got[id] != pos {
					t.Errorf("positions[%q] = %v, want %v", id, got[id], pos)
				}
			}
		})
	}
}

func TestParsePositionQueryMalformed(t *testing.T) {
	t.Parallel()

	for _, data := range []string{"", "not json", `[{"label":`} {
		if _, err := ParsePositionQuery([]byte(data)); !errors.Is(err, ErrMalformedQuery) {
			t.Errorf("ParsePositionQuery(%q) error = %v, want ErrMalformedQuery", data, err)
		}
	}
}

func TestIsAnchorLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  bool
	}{
		{"ts-doc-start", true},
		{"ts-anything At All", true}, // prefix wins regardless of shape
		{"hello-world", true},
		{"intro-1", true},
		{"", false},
		{"Has Upper", false},
		{"under_score", false},
		{"emoji-🎉", false},
	}

	for _, tt := range tests {
		if got := isAnchorLabel(tt.label); got != tt.want {
			t.Errorf("isAnchorLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestBuildSourceMap(t *testing.T) {
	t.Parallel()

	anchors := []AnchorMeta{
		{ID: "ts-doc-start", Offset: 0, Line: 0, Column: 0},
		{ID: "intro", Offset: 21, Line: 4, Column: 0},
		{ID: "ts-hr-1", Offset: 40, Line: 8, Column: 0},
	}
	positions := map[string]PDFPosition{
		"intro":      {Page: 2, X: 70, Y: 120},
		"ts-unknown": {Page: 9, X: 1, Y: 1},
	}

	payload := BuildSourceMap(anchors, positions)

	if len(payload.Anchors) != len(anchors) {
		t.Fatalf("entries = %d, want %d", len(payload.Anchors), len(anchors))
	}
	for i, a := range anchors {
		entry := payload.Anchors[i]
		if entry.ID != a.ID {
			t.Errorf("entry[%d].ID = %q, want %q (input order preserved)", i, entry.ID, a.ID)
		}
		if entry.Editor.Offset != a.Offset || entry.Editor.Line != a.Line || entry.Editor.Column != a.Column {
			t.Errorf("entry[%d].Editor = %+v, want %+v", i, entry.Editor, a)
		}
	}

	if payload.Anchors[0].PDF != nil {
		t.Errorf("unreported anchor has PDF = %v, want nil", payload.Anchors[0].PDF)
	}
	if got := payload.Anchors[1].PDF; got == nil || *got != (PDFPosition{Page: 2, X: 70, Y: 120}) {
		t.Errorf("intro PDF = %v, want page 2 at (70, 120)", got)
	}
	if payload.Anchors[2].PDF != nil {
		t.Errorf("ts-hr-1 PDF = %v, want nil", payload.Anchors[2].PDF)
	}

	// Positions for ids not in the anchor list never surface.
	for _, entry := range payload.Anchors {
		if entry.ID == "ts-unknown" {
			t.Error("stray position id leaked into the source map")
		}
	}
}

func TestBuildSourceMapEmpty(t *testing.T) {
	t.Parallel()

	payload := BuildSourceMap(nil, nil)
	if len(payload.Anchors) != 0 {
		t.Errorf("entries = %v, want empty", payload.Anchors)
	}
}
