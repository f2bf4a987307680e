package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/spectate/internal/presentation/graph"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []graph.Node
		contains []string
		excludes []string
	}{
		{
			name:     "Root Node Shape",
			nodes:    []graph.Node{{ID: "warehouse"}},
			contains: []string{`warehouse(("warehouse"))`},
		},
		{
			name: "Child Edge",
			nodes: []graph.Node{
				{ID: "warehouse"},
				{ID: "bin-1", Parents: []string{"warehouse"}, Events: 3},
			},
			contains: []string{
				`bin_1["bin-1 <br/> 3 events"]`,
				"warehouse --> bin_1",
			},
		},
		{
			name: "ID Sanitization",
			nodes: []graph.Node{
				{ID: "inventory/a.b"},
			},
			contains: []string{`inventory_a_b(("inventory/a.b"))`},
		},
		{
			name: "Cycle Is Dotted",
			nodes: []graph.Node{
				{ID: "a", Parents: []string{"b"}},
				{ID: "b", Parents: []string{"a"}},
			},
			contains: []string{"b -.-> a", "a -.-> b"},
			excludes: []string{"b --> a"},
		},
		{
			name: "Diamond Is Solid",
			nodes: []graph.Node{
				{ID: "root"},
				{ID: "l", Parents: []string{"root"}},
				{ID: "r", Parents: []string{"root"}},
				{ID: "leaf", Parents: []string{"l", "r"}},
			},
			contains: []string{"l --> leaf", "r --> leaf"},
			excludes: []string{"-.->"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.nodes, nil)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, got, bad)
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	nodes := []graph.Node{{ID: "w"}, {ID: "x", Parents: []string{"w"}}}
	got := graph.GenerateMermaid(nodes, &graph.Overlay{Emitted: []string{"x", "x"}, Root: "w"})

	assert.Equal(t, 1, strings.Count(got, "class x emitted;"))
	assert.Contains(t, got, "class w root;")
}
