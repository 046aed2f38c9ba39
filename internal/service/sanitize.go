package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxPublishRunes = 240
	maxLinkRunes    = 30
	ellipsis        = "..."
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

// SanitizeText prepares post text for the transport. Control characters other than
// newline are removed, long links are cut, and the result is capped at 240 runes.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, text)

	text = linkPattern.ReplaceAllStringFunc(text, func(link string) string {
		if utf8.RuneCountInString(link) <= maxLinkRunes {
			return link
		}
		return string([]rune(link)[:maxLinkRunes]) + ellipsis
	})

	if utf8.RuneCountInString(text) > maxPublishRunes {
		text = string([]rune(text)[:maxPublishRunes-len(ellipsis)]) + ellipsis
	}
	return text
}
