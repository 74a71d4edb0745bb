package segment

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/seantiz/podfree/internal/model"
)

func w(start, end float64, deleted bool) model.EditedWord {
	return model.EditedWord{Start: start, End: end, Deleted: deleted}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		words []model.EditedWord
		want  []model.Segment
	}{
		{
			name:  "empty input",
			words: nil,
			want:  []model.Segment{},
		},
		{
			name:  "all deleted",
			words: []model.EditedWord{w(0, 1, true), w(1, 2, true)},
			want:  []model.Segment{},
		},
		{
			name:  "nothing deleted spans first to last",
			words: []model.EditedWord{w(0.5, 1, false), w(1.2, 2, false), w(2.1, 3.4, false)},
			want:  []model.Segment{{Start: 0.5, End: 3.4}},
		},
		{
			name:  "deletion splits runs",
			words: []model.EditedWord{w(0, 1, false), w(1, 2, true), w(2, 3, false), w(3, 4, false)},
			want:  []model.Segment{{Start: 0, End: 1}, {Start: 2, End: 4}},
		},
		{
			name:  "leading and trailing deletions",
			words: []model.EditedWord{w(0, 1, true), w(1, 2, false), w(2, 3, true)},
			want:  []model.Segment{{Start: 1, End: 2}},
		},
		{
			name:  "consecutive deletions close once",
			words: []model.EditedWord{w(0, 1, false), w(1, 2, true), w(2, 3, true), w(3, 4, false)},
			want:  []model.Segment{{Start: 0, End: 1}, {Start: 3, End: 4}},
		},
		{
			name:  "gaps inside a run are kept",
			words: []model.EditedWord{w(0, 1, false), w(5, 6, false)},
			want:  []model.Segment{{Start: 0, End: 6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.words)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Build() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBuildMatchesRuns checks Build against an independent run-splitting
// formulation on random inputs.
func TestBuildMatchesRuns(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(30)
		words := make([]model.EditedWord, n)
		var clock float64
		for i := range words {
			start := clock + rng.Float64()
			end := start + 0.1 + rng.Float64()
			clock = end
			words[i] = w(start, end, rng.Intn(3) == 0)
		}

		var want []model.Segment
		for i := 0; i < n; {
			if words[i].Deleted {
				i++
				continue
			}
			j := i
			for j+1 < n && !words[j+1].Deleted {
				j++
			}
			want = append(want, model.Segment{Start: words[i].Start, End: words[j].End})
			i = j + 1
		}

		got := Build(words)
		if len(got) != len(want) {
			t.Fatalf("iter %d: got %d segments, want %d", iter, len(got), len(want))
		}
		for k := range got {
			if got[k] != want[k] {
				t.Fatalf("iter %d: segment %d = %v, want %v", iter, k, got[k], want[k])
			}
			if k > 0 && got[k].Start <= got[k-1].Start {
				t.Fatalf("iter %d: segments not ascending at %d", iter, k)
			}
		}
	}
}

func TestStats(t *testing.T) {
	kept, deleted := Stats([]model.EditedWord{w(0, 1, false), w(1, 2, true), w(2, 3, false)})
	if kept != 2 || deleted != 1 {
		t.Errorf("Stats = (%d, %d), want (2, 1)", kept, deleted)
	}
}

func TestTotalDuration(t *testing.T) {
	got := TotalDuration([]model.Segment{{Start: 0, End: 1.5}, {Start: 2, End: 4}})
	if got != 3.5 {
		t.Errorf("TotalDuration = %v, want 3.5", got)
	}
}
