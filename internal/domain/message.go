package domain

import (
	"fmt"
	"strings"
)

type wording struct {
	header  string
	anime   string
	episode string
	season  string
	ep      string
}

var locales = map[string]wording{
	"tr": {header: "🎬 *Yeni Anime Bölümleri* 🎬", anime: "Anime", episode: "Bölüm", season: "Sezon", ep: "Bölüm"},
	"en": {header: "🎬 *New Anime Episodes* 🎬", anime: "Anime", episode: "Episode", season: "Season", ep: "Episode"},
}

// SupportedLocale indique si FormatMessage connaît la locale.
func SupportedLocale(locale string) bool {
	_, ok := locales[locale]
	return ok
}

// FormatMessage construit le message multi-ligne envoyé à l'utilisateur.
// Locale inconnue => "tr".
func FormatMessage(locale string, events []EpisodeEvent) string {
	w, ok := locales[locale]
	if !ok {
		w = locales["tr"]
	}

	var b strings.Builder
	b.WriteString(w.header)
	b.WriteString("\n\n")
	for i, ev := range events {
		fmt.Fprintf(&b, "%d. [%s]\n", i+1, ev.Source)
		fmt.Fprintf(&b, "   %s: %s\n", w.anime, ev.Title)
		fmt.Fprintf(&b, "   %s: %d. %s, %d. %s\n\n", w.episode, ev.State.Season, w.season, ev.State.Episode, w.ep)
	}
	return b.String()
}
