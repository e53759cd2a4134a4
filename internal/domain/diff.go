package domain

// NewEpisodes compare deux snapshots et renvoie les nouveaux épisodes des titres suivis.
//
// Un événement est émis pour (source, titre) si le titre est suivi, possède un
// numéro d'épisode dans cur, et est absent de old pour cette source ou y a un
// numéro d'épisode strictement inférieur.
//
// Seul le numéro d'épisode est comparé : un passage de {saison 1, épisode 5}
// à {saison 2, épisode 1} ne produit pas d'événement.
//
// L'ordre est celui de cur (sources, puis titres), sans tri supplémentaire.
func NewEpisodes(old, cur Snapshot, tracked TrackedSet) []EpisodeEvent {
	events := []EpisodeEvent{}
	if tracked.Len() == 0 {
		return events
	}
	for _, listing := range cur.Sources {
		prev, _ := old.Listing(listing.Source)
		prevIndex := indexTitles(prev)
		for _, t := range listing.Titles {
			if !t.State.HasEpisode() || !tracked.Contains(t.Title) {
				continue
			}
			// Un ancien état sans numéro n'est ni absent ni inférieur.
			if before, seen := prevIndex[t.Title]; seen && !(before.HasEpisode() && before.Episode < t.State.Episode) {
				continue
			}
			events = append(events, EpisodeEvent{Source: listing.Source, Title: t.Title, State: t.State})
		}
	}
	return events
}

func indexTitles(l SourceListing) map[string]EpisodeState {
	out := make(map[string]EpisodeState, len(l.Titles))
	for _, t := range l.Titles {
		out[t.Title] = t.State
	}
	return out
}

// AllTitles liste tous les titres du snapshot pour la page de sélection.
// Dédoublonné par titre : première position conservée, dernière couverture gagnante.
func AllTitles(s Snapshot) []TitleOption {
	out := []TitleOption{}
	index := map[string]int{}
	for _, listing := range s.Sources {
		for _, t := range listing.Titles {
			if i, ok := index[t.Title]; ok {
				out[i].Cover = t.State.Cover
				continue
			}
			index[t.Title] = len(out)
			out = append(out, TitleOption{Title: t.Title, Cover: t.State.Cover})
		}
	}
	return out
}
