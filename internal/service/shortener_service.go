package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/curapost/internal/transfer"
)

const (
	bitlyShortenURL   = "https://api-ssl.bitly.com/v4/shorten"
	tinyURLCreateURL  = "https://tinyurl.com/api-create.php"
	shortenerTimeout  = 10 * time.Second
	maxShortLinkBytes = 2 << 10
)

// ShortenerService shortens links with Bitly when an API key is configured, TinyURL otherwise.
type ShortenerService struct {
	apiKey     string
	httpClient *http.Client
	bitlyURL   string
	tinyURL    string
}

func NewShortenerService(apiKey string, httpClient *http.Client) *ShortenerService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: shortenerTimeout}
	}
	return &ShortenerService{
		apiKey:     apiKey,
		httpClient: httpClient,
		bitlyURL:   bitlyShortenURL,
		tinyURL:    tinyURLCreateURL,
	}
}

// Shorten never fails loudly: any error is logged and reported as no result.
func (s *ShortenerService) Shorten(ctx context.Context, longURL string) (string, bool) {
	if longURL == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, shortenerTimeout)
	defer cancel()

	var (
		link string
		err  error
	)
	if s.apiKey != "" {
		link, err = s.bitly(ctx, longURL)
	} else {
		link, err = s.tinyurl(ctx, longURL)
	}
	if err != nil {
		slog.Warn("url shortening failed", "url", longURL, "error", err)
		return "", false
	}
	return link, true
}

func (s *ShortenerService) bitly(ctx context.Context, longURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"long_url": longURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.bitlyURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("bitly returned status %d", resp.StatusCode)
	}

	var result transfer.BitlyShortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode bitly response: %w", err)
	}
	if result.Link == "" {
		return "", fmt.Errorf("bitly returned no link")
	}
	return result.Link, nil
}

func (s *ShortenerService) tinyurl(ctx context.Context, longURL string) (string, error) {
	endpoint := s.tinyURL + "?url=" + url.QueryEscape(longURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tinyurl returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxShortLinkBytes))
	if err != nil {
		return "", err
	}
	link := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(link, "http") {
		return "", fmt.Errorf("tinyurl returned unexpected body %q", link)
	}
	return link, nil
}
