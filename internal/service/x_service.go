package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	config "github.com/maheshrc27/curapost/configs"
	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
	"github.com/maheshrc27/curapost/internal/transfer"
	"github.com/maheshrc27/curapost/pkg/utils"
	"golang.org/x/oauth2"
)

const (
	xAPIBaseURL      = "https://api.x.com"
	xAuthURL         = "https://x.com/i/oauth2/authorize"
	xTokenURL        = "https://api.x.com/2/oauth2/token"
	xTokenLifetime   = 2 * time.Hour
	xMediaCategory   = "tweet_image"
	maxErrorBodySize = 4 << 10
)

var xScopes = []string{"tweet.read", "tweet.write", "users.read", "media.write", "offline.access"}

type XService interface {
	PublishTransport
	RefreshToken(ctx context.Context) error
	SeedCredentials(ctx context.Context, accessToken, refreshToken string) error
}

type xService struct {
	cfg        config.Config
	cr         repository.CredentialRepository
	oauth      *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

func NewXService(cfg config.Config, cr repository.CredentialRepository, httpClient *http.Client) XService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TransportTimeout}
	}
	return &xService{
		cfg: cfg,
		cr:  cr,
		oauth: &oauth2.Config{
			ClientID:     cfg.X.ClientID,
			ClientSecret: cfg.X.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   xAuthURL,
				TokenURL:  xTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: xScopes,
		},
		httpClient: httpClient,
		baseURL:    xAPIBaseURL,
	}
}

// IsReady reports whether stored credentials exist and the API accepts them.
func (x *xService) IsReady(ctx context.Context) bool {
	client, err := x.client(ctx)
	if err != nil {
		slog.Warn("x transport not ready", "error", err)
		return false
	}

	var me transfer.XUserResponse
	if err := x.do(ctx, client, http.MethodGet, "/2/users/me", "", nil, &me); err != nil {
		slog.Warn("x transport not ready", "error", err)
		return false
	}
	return me.Data.ID != ""
}

func (x *xService) UploadMedia(ctx context.Context, localPath string) (string, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}

	kind, err := filetype.Match(content)
	if err != nil {
		return "", fmt.Errorf("failed to detect media type: %w", err)
	}
	if !filetype.IsImage(content) {
		return "", fmt.Errorf("unsupported media type %q for %s", kind.MIME.Value, filepath.Base(localPath))
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("media_category", xMediaCategory); err != nil {
		return "", err
	}
	if err := writer.WriteField("media_type", kind.MIME.Value); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("media", filepath.Base(localPath))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	client, err := x.client(ctx)
	if err != nil {
		return "", err
	}

	var resp transfer.XMediaUploadResponse
	if err := x.do(ctx, client, http.MethodPost, "/2/media/upload", writer.FormDataContentType(), body, &resp); err != nil {
		return "", fmt.Errorf("media upload: %w", err)
	}
	if resp.Data.ID == "" {
		return "", errors.New("media upload: empty media id")
	}
	return resp.Data.ID, nil
}

func (x *xService) Publish(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := transfer.XTweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &transfer.XTweetMedia{MediaIDs: mediaIDs}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	client, err := x.client(ctx)
	if err != nil {
		return "", err
	}

	var resp transfer.XTweetResponse
	if err := x.do(ctx, client, http.MethodPost, "/2/tweets", "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", errors.New("create post: empty id in response")
	}
	return resp.Data.ID, nil
}

// RefreshToken exchanges the stored refresh token for a new token pair.
func (x *xService) RefreshToken(ctx context.Context) error {
	token, err := x.storedToken(ctx)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return errors.New("no refresh token stored")
	}

	token.Expiry = time.Now().Add(-time.Minute)
	fresh, err := x.oauth.TokenSource(x.oauthContext(ctx), token).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh x token: %w", err)
	}
	return x.save(ctx, fresh)
}

// SeedCredentials stores tokens from the environment when none are stored yet.
func (x *xService) SeedCredentials(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return nil
	}
	existing, err := x.cr.GetByPlatform(ctx, models.PlatformX)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return x.save(ctx, &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(xTokenLifetime),
	})
}

func (x *xService) client(ctx context.Context) (*http.Client, error) {
	token, err := x.storedToken(ctx)
	if err != nil {
		return nil, err
	}

	source := &persistingTokenSource{
		base: x.oauth.TokenSource(x.oauthContext(ctx), token),
		last: token.AccessToken,
		save: func(t *oauth2.Token) error { return x.save(ctx, t) },
	}
	return oauth2.NewClient(x.oauthContext(ctx), oauth2.ReuseTokenSource(token, source)), nil
}

func (x *xService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, x.httpClient)
}

func (x *xService) storedToken(ctx context.Context) (*oauth2.Token, error) {
	cred, err := x.cr.GetByPlatform(ctx, models.PlatformX)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrTransportUnauthenticated
	}

	accessToken, err := utils.Decrypt(cred.AccessToken, []byte(x.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	var refreshToken string
	if cred.RefreshToken != "" {
		refreshToken, err = utils.Decrypt(cred.RefreshToken, []byte(x.cfg.SecretKey))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
	}

	return &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       cred.TokenExpiresAt,
	}, nil
}

func (x *xService) save(ctx context.Context, token *oauth2.Token) error {
	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(x.cfg.SecretKey))
	if err != nil {
		return err
	}

	var encryptedRefresh string
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(x.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(xTokenLifetime)
	}

	return x.cr.Upsert(ctx, &models.TransportCredential{
		Platform:       models.PlatformX,
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		TokenExpiresAt: expiry,
	})
}

func (x *xService) do(ctx context.Context, client *http.Client, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		var apiErr transfer.XErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("x api %s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("x api %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// persistingTokenSource stores every refreshed token so the next run starts from it.
type persistingTokenSource struct {
	base oauth2.TokenSource
	last string
	save func(*oauth2.Token) error
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		if err := s.save(token); err != nil {
			slog.Error("failed to store refreshed x token", "error", err)
		}
		s.last = token.AccessToken
	}
	return token, nil
}
