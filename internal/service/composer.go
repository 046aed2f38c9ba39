package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/curapost/internal/models"
)

const (
	leadIn            = "【新着】"
	performerLabel    = "出演: "
	categoryLabel     = "ジャンル: "
	andOthers         = "他"
	maxListedNames    = 3
	categoryTextLimit = 200
)

// URLShortener returns a shortened link, or false when none could be produced.
type URLShortener interface {
	Shorten(ctx context.Context, longURL string) (string, bool)
}

// Composer builds post text from product metadata. Length limits are left to SanitizeText.
type Composer struct {
	shortener URLShortener
}

// NewComposer returns a Composer. A nil shortener means no link is ever appended.
func NewComposer(shortener URLShortener) *Composer {
	return &Composer{shortener: shortener}
}

func (c *Composer) Compose(ctx context.Context, p *models.Product) string {
	var b strings.Builder
	b.WriteString(leadIn)
	b.WriteString(p.Title)

	if len(p.Performers) > 0 {
		b.WriteString("\n")
		b.WriteString(performerLabel)
		if len(p.Performers) <= maxListedNames {
			b.WriteString(strings.Join(p.Performers, ", "))
		} else {
			b.WriteString(strings.Join(p.Performers[:maxListedNames], ", "))
			b.WriteString(andOthers)
		}
	}

	if len(p.Categories) > 0 && utf8.RuneCountInString(b.String()) < categoryTextLimit {
		categories := p.Categories
		if len(categories) > maxListedNames {
			categories = categories[:maxListedNames]
		}
		b.WriteString("\n")
		b.WriteString(categoryLabel)
		b.WriteString(strings.Join(categories, ", "))
	}

	if c.shortener != nil && p.URL != "" {
		if link, ok := c.shortener.Shorten(ctx, p.URL); ok {
			b.WriteString("\n")
			b.WriteString(link)
		}
	}

	return b.String()
}
