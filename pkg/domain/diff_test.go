package domain

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	keys := DiffKeys{Identity: []string{"key"}}

	tests := []struct {
		name string
		in   []Event
		want []Event
	}{
		{
			name: "No Events",
			in:   nil,
			want: []Event{},
		},
		{
			name: "Single Event Untouched",
			in:   []Event{NewEvent("key", "a", "old", 0, "new", 1)},
			want: []Event{NewEvent("key", "a", "old", 0, "new", 1)},
		},
		{
			name: "Repeated Updates Collapse",
			in: []Event{
				NewEvent("key", "a", "old", 0, "new", 1),
				NewEvent("key", "a", "old", 1, "new", 2),
				NewEvent("key", "a", "old", 2, "new", 3),
			},
			want: []Event{NewEvent("key", "a", "old", 0, "new", 3)},
		},
		{
			name: "Net No-Op Dropped",
			in: []Event{
				NewEvent("key", "a", "old", 0, "new", 1),
				NewEvent("key", "a", "old", 1, "new", 0),
			},
			want: []Event{},
		},
		{
			name: "Groups Keep First Position",
			in: []Event{
				NewEvent("key", "a", "old", 0, "new", 1),
				NewEvent("key", "b", "old", 0, "new", 5),
				NewEvent("key", "a", "old", 1, "new", 2),
			},
			want: []Event{
				NewEvent("key", "a", "old", 0, "new", 2),
				NewEvent("key", "b", "old", 0, "new", 5),
			},
		},
		{
			name: "Events Without Identity Pass Through",
			in: []Event{
				NewEvent("reset", true),
				NewEvent("key", "a", "old", 0, "new", 1),
			},
			want: []Event{
				NewEvent("reset", true),
				NewEvent("key", "a", "old", 0, "new", 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.in, keys)
			if len(got) != len(tt.want) {
				t.Fatalf("Diff() returned %d events, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("event %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDiff_CustomKeys(t *testing.T) {
	in := []Event{
		NewEvent("index", 0, "before", []int{1}, "after", []int{1, 2}),
		NewEvent("index", 0, "before", []int{1, 2}, "after", []int{1, 2, 3}),
	}

	got := Diff(in, DiffKeys{Identity: []string{"index"}, Old: "before", New: "after"})
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Value("before"), []int{1}) {
		t.Errorf("before = %v, want [1]", got[0].Value("before"))
	}
	if !reflect.DeepEqual(got[0].Value("after"), []int{1, 2, 3}) {
		t.Errorf("after = %v, want [1 2 3]", got[0].Value("after"))
	}
}

func TestDiff_NoIdentityCopies(t *testing.T) {
	in := []Event{NewEvent("a", 1)}
	got := Diff(in, DiffKeys{})
	got[0] = NewEvent("b", 2)
	if !in[0].Equal(NewEvent("a", 1)) {
		t.Error("Diff must not alias its input")
	}
}
