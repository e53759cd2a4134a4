// Package diziwatch scrape la liste des derniers épisodes de DiziWatch (yeniwatch).
package diziwatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/unicode/norm"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

var tracer = otel.Tracer("adapters/diziwatch")

// ErrNoListing signale une page sans bloc d'épisodes (page de vérification, maquette changée...).
var ErrNoListing = errors.New("episode listing not found")

// HTTPStatusError indique une réponse non 2xx du site.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

type Options struct {
	Name             string
	URL              string
	Timeout          time.Duration
	UserAgent        string
	CloudflareBypass bool
}

type Source struct {
	name   string
	url    string
	client *resty.Client
}

func New(opts Options) *Source {
	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	client.SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &Source{name: opts.Name, url: opts.URL, client: client}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Fetch(ctx context.Context) (domain.SourceListing, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source", s.name), attribute.String("url", s.url))

	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return domain.SourceListing{}, err
	}
	if resp.IsError() {
		err := &HTTPStatusError{URL: s.url, StatusCode: resp.StatusCode()}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return domain.SourceListing{}, err
	}

	listing, err := Parse(s.name, resp.Body(), s.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return domain.SourceListing{}, err
	}
	span.SetAttributes(attribute.Int("titles", len(listing.Titles)))
	return listing, nil
}

var reEpisodeLabel = regexp.MustCompile(`(\d+)\. Sezon (\d+)\. Bölüm`)

// Parse extrait les épisodes de la page d'accueil. Fonction pure.
//
// Les entrées sans titre ou sans libellé "N. Sezon M. Bölüm" sont ignorées.
// Une page sans bloc .list-episodes renvoie ErrNoListing.
func Parse(source string, html []byte, pageURL string) (domain.SourceListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.SourceListing{}, err
	}
	container := doc.Find(".list-episodes")
	if container.Length() == 0 {
		return domain.SourceListing{}, ErrNoListing
	}

	b := domain.NewListingBuilder(source)
	container.Find(".episode-box").Each(func(_ int, box *goquery.Selection) {
		title := domain.NormalizeTitle(box.Find(".serie-name a").First().Text())
		if title == "" {
			return
		}
		season, episode, ok := parseEpisodeLabel(box.Find(".episode-name a").First().Text())
		if !ok {
			return
		}
		b.Put(title, domain.EpisodeState{Season: season, Episode: episode, Cover: coverOf(box, pageURL)})
	})
	return b.Build(), nil
}

func parseEpisodeLabel(label string) (season, episode int, ok bool) {
	m := reEpisodeLabel.FindStringSubmatch(norm.NFC.String(label))
	if m == nil {
		return 0, 0, false
	}
	season, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	episode, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return season, episode, true
}

func coverOf(box *goquery.Selection, pageURL string) string {
	img := box.Find("a img").First()
	for _, attr := range []string{"data-src", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return resolveURL(pageURL, strings.TrimSpace(v))
		}
	}
	return ""
}

func resolveURL(base, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}
