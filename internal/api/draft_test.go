package api

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDraftCloneDoesNotAlias(t *testing.T) {
	draft := NewDraft()
	draft.Genres = []string{"sci-fi", "mystery"}
	draft.Pace = "steady"
	draft.Length = "medium"
	draft.Languages = []string{"english"}
	draft.Rate("b1", RatingLoved)

	clone := draft.Clone()
	if diff := cmp.Diff(draft, clone); diff != "" {
		t.Fatalf("clone differs from original (-want +got):\n%s", diff)
	}

	clone.Genres[0] = "horror"
	clone.Languages = append(clone.Languages, "french")
	clone.Rate("b2", RatingDisliked)

	if draft.Genres[0] != "sci-fi" {
		t.Fatalf("mutating the clone leaked into the original genres: %v", draft.Genres)
	}
	if len(draft.Languages) != 1 {
		t.Fatalf("mutating the clone leaked into the original languages: %v", draft.Languages)
	}
	if _, ok := draft.Ratings["b2"]; ok {
		t.Fatal("mutating the clone leaked into the original ratings")
	}
}

func TestDraftCompleteness(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Draft)
		complete bool
	}{
		{"empty", func(*Draft) {}, false},
		{"genres only", func(d *Draft) { d.Genres = []string{"sci-fi"} }, false},
		{"missing length", func(d *Draft) { d.Genres = []string{"sci-fi"}; d.Pace = "fast" }, false},
		{"all selects", func(d *Draft) { d.Genres = []string{"sci-fi"}; d.Pace = "fast"; d.Length = "short" }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := NewDraft()
			tc.mutate(draft)
			if got := draft.Complete(); got != tc.complete {
				t.Fatalf("Complete() = %t, want %t", got, tc.complete)
			}
		})
	}

	var nilDraft *Draft
	if nilDraft.Complete() {
		t.Fatal("nil draft cannot be complete")
	}
}

func TestRatedBookIDsStableOrder(t *testing.T) {
	draft := NewDraft()
	draft.Rate("zeta", RatingLoved)
	draft.Rate("alpha", RatingSkipped)
	draft.Rate("mid", RatingDisliked)

	want := []string{"alpha", "mid", "zeta"}
	if diff := cmp.Diff(want, draft.RatedBookIDs()); diff != "" {
		t.Fatalf("unexpected id order (-want +got):\n%s", diff)
	}
}

func TestDraftEmpty(t *testing.T) {
	draft := NewDraft()
	if !draft.Empty() {
		t.Fatal("a fresh draft must be empty")
	}

	draft.Rate("b1", RatingLiked)
	if draft.Empty() {
		t.Fatal("a rated draft is not empty")
	}
}
