package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/ivy/internal/dto"
	"github.com/aretw0/ivy/internal/presentation/graph"
)

func TestGenerateMermaid(t *testing.T) {
	sc := &dto.Scenario{
		Records:   map[string]map[string]any{"my-list": {"w": 1}},
		Sequences: map[string][]any{"items": {"a"}, "extra": nil},
		Derived:   []dto.Derivation{{Record: "my-list", Key: "d", Expr: `w + "x"`}},
		Tree:      &dto.Tree{Tag: "ul", Attrs: "my-list", Children: []string{"items", "extra"}},
		Steps: []dto.Step{
			{Op: dto.OpWrite, Record: "my-list", Key: "w"},
			{Op: dto.OpAppend, Sequence: "items"},
			{Op: dto.OpAppend, Sequence: "items"},
		},
	}

	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes And Edges",
			contains: []string{
				"graph LR",
				`r_my_list[("my-list")]`,
				`s_items[/"items"/]`,
				`r_my_list -- "d = w + 'x'" --> r_my_list`,
				`tree(("&lt;ul&gt;"))`,
				"r_my_list -. attrs .-> tree",
				`s_items -- "0" --> tree`,
				`s_extra -- "1" --> tree`,
			},
			excludes: []string{"classDef"},
		},
		{
			name:    "Written Overlay",
			overlay: &graph.GraphOverlay{Written: graph.WrittenBy(sc)},
			contains: []string{
				"classDef written",
				"class r_my_list written;",
				"class s_items written;",
			},
			excludes: []string{"class s_extra written;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(sc, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q\nGot:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", unwanted, out)
				}
			}
			if n := strings.Count(out, "class s_items written;"); n > 1 {
				t.Errorf("expected deduplicated overlay, got %d entries", n)
			}
		})
	}
}
