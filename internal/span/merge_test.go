package span

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"twitch_notify/internal/model"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		spans []model.MatchSpan
		want  []model.MatchSpan
	}{
		{
			name:  "empty input",
			spans: nil,
			want:  nil,
		},
		{
			name:  "single span",
			spans: []model.MatchSpan{{Start: 2, End: 4}},
			want:  []model.MatchSpan{{Start: 2, End: 4}},
		},
		{
			name:  "overlapping spans fuse",
			spans: []model.MatchSpan{{Start: 0, End: 5}, {Start: 3, End: 8}},
			want:  []model.MatchSpan{{Start: 0, End: 8}},
		},
		{
			name:  "disjoint spans stay separate",
			spans: []model.MatchSpan{{Start: 0, End: 3}, {Start: 5, End: 8}},
			want:  []model.MatchSpan{{Start: 0, End: 3}, {Start: 5, End: 8}},
		},
		{
			name:  "unsorted input is sorted",
			spans: []model.MatchSpan{{Start: 12, End: 17}, {Start: 0, End: 5}},
			want:  []model.MatchSpan{{Start: 0, End: 5}, {Start: 12, End: 17}},
		},
		{
			name:  "prefix triggers on hello",
			spans: []model.MatchSpan{{Start: 0, End: 3}, {Start: 1, End: 5}},
			want:  []model.MatchSpan{{Start: 0, End: 5}},
		},
		{
			name:  "contained span is absorbed",
			spans: []model.MatchSpan{{Start: 0, End: 10}, {Start: 2, End: 4}},
			want:  []model.MatchSpan{{Start: 0, End: 10}},
		},
		{
			name:  "duplicate spans collapse",
			spans: []model.MatchSpan{{Start: 1, End: 4}, {Start: 1, End: 4}},
			want:  []model.MatchSpan{{Start: 1, End: 4}},
		},
		{
			name:  "touching spans stay separate",
			spans: []model.MatchSpan{{Start: 0, End: 3}, {Start: 3, End: 6}},
			want:  []model.MatchSpan{{Start: 0, End: 3}, {Start: 3, End: 6}},
		},
		{
			name:  "chain of overlaps",
			spans: []model.MatchSpan{{Start: 4, End: 9}, {Start: 0, End: 2}, {Start: 1, End: 5}, {Start: 8, End: 12}},
			want:  []model.MatchSpan{{Start: 0, End: 12}},
		},
		{
			name:  "empty spans are dropped",
			spans: []model.MatchSpan{{Start: 3, End: 3}, {Start: 5, End: 4}, {Start: 1, End: 2}},
			want:  []model.MatchSpan{{Start: 1, End: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.spans)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := []model.MatchSpan{{Start: 5, End: 9}, {Start: 0, End: 6}}
	want := append([]model.MatchSpan(nil), in...)
	_ = Merge(in)
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestMergeProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 500; iter++ {
		n := r.IntN(12)
		in := make([]model.MatchSpan, n)
		for i := range in {
			start := r.IntN(60)
			in[i] = model.MatchSpan{Start: start, End: start + 1 + r.IntN(10)}
		}

		out := Merge(in)

		for i := 1; i < len(out); i++ {
			if out[i].Start < out[i-1].Start {
				t.Fatalf("not sorted: %v (input %v)", out, in)
			}
			if out[i].Start < out[i-1].End {
				t.Fatalf("overlapping output: %v (input %v)", out, in)
			}
		}
		for _, s := range out {
			if !s.Valid() {
				t.Fatalf("invalid span %v in output %v", s, out)
			}
		}
		if Covered(out) > Covered(in) {
			t.Fatalf("covered %d > input %d: %v -> %v", Covered(out), Covered(in), in, out)
		}
		for _, s := range in {
			if !coveredBy(s, out) {
				t.Fatalf("input span %v lost in %v", s, out)
			}
		}
	}
}

func coveredBy(s model.MatchSpan, out []model.MatchSpan) bool {
	for _, o := range out {
		if o.Start <= s.Start && s.End <= o.End {
			return true
		}
	}
	return false
}
