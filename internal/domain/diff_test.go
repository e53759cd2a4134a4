package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func snapshotOf(listings ...SourceListing) Snapshot {
	return Snapshot{Sources: listings}
}

func listingOf(source string, titles ...TitleState) SourceListing {
	b := NewListingBuilder(source)
	for _, t := range titles {
		b.Put(t.Title, t.State)
	}
	return b.Build()
}

func ep(title string, season, episode int) TitleState {
	return TitleState{Title: title, State: EpisodeState{Season: season, Episode: episode}}
}

func TestNewEpisodes_NarutoScenario(t *testing.T) {
	old := snapshotOf(listingOf("DiziWatch", ep("Naruto", 1, 3)))
	cur := snapshotOf(listingOf("DiziWatch", ep("Naruto", 1, 4), ep("OnePiece", 1, 10)))

	got := NewEpisodes(old, cur, NewTrackedSet("Naruto"))
	want := []EpisodeEvent{
		{Source: "DiziWatch", Title: "Naruto", State: EpisodeState{Season: 1, Episode: 4}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNewEpisodes_SameSnapshotYieldsNothing(t *testing.T) {
	s := snapshotOf(
		listingOf("DiziWatch", ep("Naruto", 1, 3), ep("Bleach", 2, 12)),
		listingOf("Other", ep("Naruto", 1, 7)),
	)
	got := NewEpisodes(s, s, NewTrackedSet("Naruto", "Bleach"))
	if len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
}

func TestNewEpisodes_SeasonRolloverIsNotNew(t *testing.T) {
	old := snapshotOf(listingOf("DiziWatch", ep("Naruto", 1, 5)))
	cur := snapshotOf(listingOf("DiziWatch", ep("Naruto", 2, 1)))

	got := NewEpisodes(old, cur, NewTrackedSet("Naruto"))
	if len(got) != 0 {
		t.Fatalf("season rollover must not be reported, got %+v", got)
	}
}

func TestNewEpisodes_EmptyTrackedSet(t *testing.T) {
	cur := snapshotOf(listingOf("DiziWatch", ep("Naruto", 1, 4)))
	got := NewEpisodes(Snapshot{}, cur, NewTrackedSet())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNewEpisodes_UntrackedNeverEmitted(t *testing.T) {
	old := snapshotOf(listingOf("DiziWatch", ep("OnePiece", 1, 1)))
	cur := snapshotOf(listingOf("DiziWatch", ep("OnePiece", 1, 1000), ep("Naruto", 1, 1)))

	got := NewEpisodes(old, cur, NewTrackedSet("Naruto"))
	want := []EpisodeEvent{
		{Source: "DiziWatch", Title: "Naruto", State: EpisodeState{Season: 1, Episode: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNewEpisodes_MalformedEntries(t *testing.T) {
	old := snapshotOf(listingOf("DiziWatch",
		TitleState{Title: "Bleach", State: EpisodeState{Episode: NoEpisode}},
	))
	cur := snapshotOf(listingOf("DiziWatch",
		TitleState{Title: "Naruto", State: EpisodeState{Episode: NoEpisode}},
		ep("Bleach", 1, 2),
	))

	got := NewEpisodes(old, cur, NewTrackedSet("Naruto", "Bleach"))
	if len(got) != 0 {
		t.Fatalf("malformed entries must not produce events, got %+v", got)
	}
}

func TestNewEpisodes_PerSourceComparisonAndOrder(t *testing.T) {
	old := snapshotOf(listingOf("A", ep("Naruto", 1, 9)))
	cur := snapshotOf(
		listingOf("A", ep("Naruto", 1, 9), ep("Bleach", 1, 1)),
		listingOf("B", ep("Naruto", 1, 2)),
	)

	got := NewEpisodes(old, cur, NewTrackedSet("Naruto", "Bleach"))
	want := []EpisodeEvent{
		{Source: "A", Title: "Bleach", State: EpisodeState{Season: 1, Episode: 1}},
		{Source: "B", Title: "Naruto", State: EpisodeState{Season: 1, Episode: 2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNewEpisodes_MatchesDefinition(t *testing.T) {
	old := snapshotOf(listingOf("S", ep("a", 1, 1), ep("b", 1, 5), ep("c", 3, 2)))
	cur := snapshotOf(listingOf("S", ep("a", 1, 2), ep("b", 1, 5), ep("c", 3, 1), ep("d", 0, 0), ep("e", 1, 1)))
	tracked := NewTrackedSet("a", "b", "c", "d")

	got := map[string]bool{}
	for _, e := range NewEpisodes(old, cur, tracked) {
		got[e.Title] = true
	}
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		newState, _ := cur.Lookup("S", title)
		oldState, seen := old.Lookup("S", title)
		want := tracked.Contains(title) && newState.HasEpisode() && (!seen || oldState.Episode < newState.Episode)
		if got[title] != want {
			t.Fatalf("title %q: want emitted=%v, got %v", title, want, got[title])
		}
	}
}

func TestAllTitles_DefaultsCoverAndDedups(t *testing.T) {
	s := snapshotOf(
		listingOf("DiziWatch", ep("Naruto", 1, 3), ep("Bleach", 1, 1)),
	)
	got := AllTitles(s)
	want := []TitleOption{{Title: "Naruto", Cover: ""}, {Title: "Bleach", Cover: ""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}

	withCovers := snapshotOf(
		listingOf("A", TitleState{Title: "Naruto", State: EpisodeState{Episode: 1, Cover: "a.jpg"}}),
		listingOf("B", TitleState{Title: "Naruto", State: EpisodeState{Episode: 1, Cover: "b.jpg"}}),
	)
	got = AllTitles(withCovers)
	if len(got) != 1 || got[0].Cover != "b.jpg" {
		t.Fatalf("expected single Naruto with last cover, got %+v", got)
	}
}
