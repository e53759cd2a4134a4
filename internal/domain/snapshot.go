package domain

import (
	"encoding/json"
	"time"
)

// SnapshotVersion est le tag de schéma persisté avec chaque snapshot/tracking.
const SnapshotVersion = 1

type TitleState struct {
	Title string
	State EpisodeState
}

// SourceListing est le résultat d'un scrape pour une source, dans l'ordre de la page.
type SourceListing struct {
	Source string
	Titles []TitleState
}

func (l SourceListing) Lookup(title string) (EpisodeState, bool) {
	for _, t := range l.Titles {
		if t.Title == title {
			return t.State, true
		}
	}
	return EpisodeState{}, false
}

// ListingBuilder construit un SourceListing sans doublon : la dernière valeur
// gagne, la première position est conservée.
type ListingBuilder struct {
	source string
	titles []TitleState
	index  map[string]int
}

func NewListingBuilder(source string) *ListingBuilder {
	return &ListingBuilder{source: source, index: map[string]int{}}
}

func (b *ListingBuilder) Put(title string, state EpisodeState) {
	if i, ok := b.index[title]; ok {
		b.titles[i].State = state
		return
	}
	b.index[title] = len(b.titles)
	b.titles = append(b.titles, TitleState{Title: title, State: state})
}

func (b *ListingBuilder) Len() int {
	return len(b.titles)
}

func (b *ListingBuilder) Build() SourceListing {
	titles := make([]TitleState, len(b.titles))
	copy(titles, b.titles)
	return SourceListing{Source: b.source, Titles: titles}
}

// Snapshot est un scrape complet de toutes les sources à un instant donné.
// Il n'est jamais modifié : chaque cycle en produit un nouveau.
type Snapshot struct {
	FetchedAt time.Time
	Sources   []SourceListing
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Sources) == 0
}

func (s Snapshot) Listing(source string) (SourceListing, bool) {
	for _, l := range s.Sources {
		if l.Source == source {
			return l, true
		}
	}
	return SourceListing{}, false
}

func (s Snapshot) Lookup(source, title string) (EpisodeState, bool) {
	l, ok := s.Listing(source)
	if !ok {
		return EpisodeState{}, false
	}
	return l.Lookup(title)
}

// TitleCount renvoie le nombre total d'entrées, toutes sources confondues.
func (s Snapshot) TitleCount() int {
	n := 0
	for _, l := range s.Sources {
		n += len(l.Titles)
	}
	return n
}

type titleStateJSON struct {
	Title   string `json:"title"`
	Season  *int   `json:"season,omitempty"`
	Episode *int   `json:"episode,omitempty"`
	Cover   string `json:"cover"`
}

type sourceListingJSON struct {
	Source string           `json:"source"`
	Titles []titleStateJSON `json:"titles"`
}

type snapshotJSON struct {
	Version   int                 `json:"version"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Sources   []sourceListingJSON `json:"sources"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Version:   SnapshotVersion,
		FetchedAt: s.FetchedAt,
		Sources:   make([]sourceListingJSON, 0, len(s.Sources)),
	}
	for _, l := range s.Sources {
		lj := sourceListingJSON{Source: l.Source, Titles: make([]titleStateJSON, 0, len(l.Titles))}
		for _, t := range l.Titles {
			season, episode := t.State.wireNumbers()
			lj.Titles = append(lj.Titles, titleStateJSON{Title: t.Title, Season: season, Episode: episode, Cover: t.State.Cover})
		}
		out.Sources = append(out.Sources, lj)
	}
	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := Snapshot{FetchedAt: in.FetchedAt}
	for _, lj := range in.Sources {
		builder := NewListingBuilder(lj.Source)
		for _, tj := range lj.Titles {
			builder.Put(tj.Title, stateFromWire(tj.Season, tj.Episode, tj.Cover))
		}
		out.Sources = append(out.Sources, builder.Build())
	}
	*s = out
	return nil
}
