package domain

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NoEpisode marque un état sans numéro d'épisode exploitable (entrée malformée).
const NoEpisode = -1

type EpisodeState struct {
	Season  int
	Episode int
	// Cover est une URL, éventuellement vide.
	Cover string
}

func (s EpisodeState) HasEpisode() bool {
	return s.Episode >= 0 && s.Season >= 0
}

type episodeStateJSON struct {
	Season  *int   `json:"season,omitempty"`
	Episode *int   `json:"episode,omitempty"`
	Cover   string `json:"cover"`
}

func (s EpisodeState) MarshalJSON() ([]byte, error) {
	season, episode := s.wireNumbers()
	return json.Marshal(episodeStateJSON{Season: season, Episode: episode, Cover: s.Cover})
}

func (s *EpisodeState) UnmarshalJSON(b []byte) error {
	var in episodeStateJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = stateFromWire(in.Season, in.Episode, in.Cover)
	return nil
}

func (s EpisodeState) wireNumbers() (season, episode *int) {
	if !s.HasEpisode() {
		return nil, nil
	}
	se, ep := s.Season, s.Episode
	return &se, &ep
}

// stateFromWire accepte des enregistrements incomplets : saison et épisode
// vont ensemble, sinon l'état est marqué NoEpisode.
func stateFromWire(season, episode *int, cover string) EpisodeState {
	if season == nil || episode == nil || *season < 0 || *episode < 0 {
		return EpisodeState{Episode: NoEpisode, Cover: cover}
	}
	return EpisodeState{Season: *season, Episode: *episode, Cover: cover}
}

type EpisodeEvent struct {
	Source string       `json:"source"`
	Title  string       `json:"title"`
	State  EpisodeState `json:"state"`
}

type TitleOption struct {
	Title string `json:"title"`
	Cover string `json:"cover"`
}

// TrackedSet est l'ensemble des titres suivis. Un ensemble vide est valide
// et signifie "notifications désactivées".
type TrackedSet struct {
	titles map[string]struct{}
}

// NormalizeTitle compacte les espaces et normalise en NFC : un titre saisi à la
// main doit égaler le même titre scrapé.
func NormalizeTitle(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func NewTrackedSet(titles ...string) TrackedSet {
	set := TrackedSet{titles: make(map[string]struct{}, len(titles))}
	for _, t := range titles {
		t = NormalizeTitle(t)
		if t == "" {
			continue
		}
		set.titles[t] = struct{}{}
	}
	return set
}

func (t TrackedSet) Contains(title string) bool {
	_, ok := t.titles[title]
	return ok
}

func (t TrackedSet) Len() int {
	return len(t.titles)
}

func (t TrackedSet) Titles() []string {
	out := make([]string, 0, len(t.titles))
	for title := range t.titles {
		out = append(out, title)
	}
	sort.Strings(out)
	return out
}
