package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/adapters/diziwatch"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/adapters/notify"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/config"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

// buildSources instancie un adaptateur par source configurée, dans l'ordre du fichier.
func buildSources(cfg config.Config) ([]ports.Source, error) {
	out := make([]ports.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		switch s.Kind {
		case "diziwatch", "":
			out = append(out, diziwatch.New(diziwatch.Options{
				Name:             s.Name,
				URL:              s.URL,
				Timeout:          cfg.Scraper.Timeout,
				UserAgent:        cfg.Scraper.UserAgent,
				CloudflareBypass: cfg.Scraper.BypassCloudflare(),
			}))
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
		}
	}
	return out, nil
}

// buildTransport renvoie le transport choisi et sa fonction de démarrage
// (poignée de main avant le premier envoi).
func buildTransport(cfg config.Config, logger zerolog.Logger) (ports.NotifyTransport, func(context.Context)) {
	noop := func(context.Context) {}
	switch cfg.Notify.Channel {
	case "webhook":
		t := notify.NewWebhookTransport(webhookOptions(cfg.Notify.Webhook), logger)
		return t, t.Start
	case "email":
		e := cfg.Notify.Email
		return notify.NewEmailTransport(notify.EmailOptions{
			SMTPHost: e.SMTPHost,
			SMTPPort: e.SMTPPort,
			Username: e.Username,
			Password: e.Password,
			From:     e.From,
			To:       e.To,
			Subject:  e.Subject,
		}), noop
	default:
		return notify.NewLogTransport(logger), noop
	}
}

func webhookOptions(w config.Webhook) notify.WebhookOptions {
	return notify.WebhookOptions{
		URL:       w.URL,
		HealthURL: w.HealthURL,
		Token:     w.Token,
		Recipient: w.Recipient,
		Timeout:   w.Timeout,
	}
}
