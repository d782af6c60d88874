package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/studio/internal/presentation/graph"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/journal"
)

func history() *journal.Journal {
	j := journal.New()
	j.Append(domain.NewTransaction("add cube", func() {}))
	j.Append(domain.NewTransaction(`rename "cube"`, func() {}, domain.WithAffinity("/World/Cube", "name")))
	_, _ = j.Fork(domain.NewTransaction("scale cube", func() {}))
	return j
}

func TestMermaid(t *testing.T) {
	out := graph.Mermaid(history().Snapshot())

	tests := []struct {
		name     string
		contains []string
	}{
		{"Header", []string{"graph TD\n"}},
		{"Labels", []string{`n0["session start"]`, `n1["add cube"]`, `n2["rename 'cube'"]`, `n3["scale cube"]`}},
		{"Redo branch is solid", []string{"n0 --> n1", "n1 --> n2"}},
		{"Fork is dotted", []string{"n1 -.-> n3"}},
		{"Cursor overlay", []string{"class n3 current;", "class n1 path;", "class n0 path;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q\n%s", want, out)
				}
			}
		})
	}
	if strings.Contains(out, "class n2") {
		t.Errorf("abandoned branch must not be styled\n%s", out)
	}
}

func TestTree(t *testing.T) {
	out := graph.Tree(history().Snapshot())
	want := "- session start\n" +
		"  - add cube\n" +
		"    - rename \"cube\" `/World/Cube:name`\n" +
		"    - **scale cube** ← current\n"
	if out != want {
		t.Errorf("unexpected tree:\n%s\nwant:\n%s", out, want)
	}
}
