package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	scope         = "https://www.googleapis.com/auth/devstorage.read_write"
	pingTimeout   = 5 * time.Second
	metadataToken = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	jwtBearer     = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// Client uploads and deletes objects in one bucket over the JSON API.
type Client struct {
	httpClient *http.Client
	bucket     string
	apiBase    string
	publicBase string
	tokens     *tokenSource
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("gcs bucket name is required")
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	var (
		ts  *tokenSource
		err error
	)
	switch {
	case gcp.CredentialsJSON != "":
		ts, err = newServiceAccountTokenSource(httpClient, []byte(gcp.CredentialsJSON))
	case gcp.ApplicationCredentials != "":
		raw, readErr := os.ReadFile(gcp.ApplicationCredentials)
		if readErr != nil {
			return nil, fmt.Errorf("reading credentials file: %w", readErr)
		}
		ts, err = newServiceAccountTokenSource(httpClient, raw)
	default:
		ts = newMetadataTokenSource(httpClient)
	}
	if err != nil {
		return nil, err
	}

	client := newClient(httpClient, cfg, ts)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": client.bucket}), "gcs client initialized")
	}
	return client, nil
}

func newClient(httpClient *http.Client, cfg config.GCSConfig, ts *tokenSource) *Client {
	return &Client{
		httpClient: httpClient,
		bucket:     strings.TrimSpace(cfg.BucketName),
		apiBase:    strings.TrimRight(cfg.APIBaseURL, "/"),
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		tokens:     ts,
	}
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Ping lists at most one object, which needs storage.objects.list.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.apiBase, url.PathEscape(c.bucket))
	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError("object list", resp)
	}
	return nil
}

// Upload writes body to object with a simple media upload.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) error {
	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(c.bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, contentType, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError("upload "+object, resp)
	}
	return nil
}

// Delete removes object. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, object string) error {
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.apiBase, url.PathEscape(c.bucket), url.PathEscape(object))
	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError("delete "+object, resp)
	}
}

func (c *Client) PublicURL(object string) string {
	return c.publicBase + "/" + c.bucket + "/" + object
}

// ObjectFromURL reverses PublicURL. URLs pointing elsewhere report false.
func (c *Client) ObjectFromURL(raw string) (string, bool) {
	prefix := c.publicBase + "/" + c.bucket + "/"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	object := strings.TrimPrefix(raw, prefix)
	return object, object != ""
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body io.Reader) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("gcs %s failed: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("gcs %s failed: %s", op, resp.Status)
}

type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
	fetch  func(context.Context) (string, time.Time, error)
}

// Token returns the cached token until it is within a minute of expiry.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.expiry.Sub(t.now()) > time.Minute {
		return t.token, nil
	}
	token, expiry, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiry = expiry
	return token, nil
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func newServiceAccountTokenSource(client *http.Client, raw []byte) (*tokenSource, error) {
	var creds serviceAccount
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	if creds.TokenURI == "" {
		creds.TokenURI = tokenEndpoint
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	ts := &tokenSource{now: time.Now}
	ts.fetch = func(ctx context.Context) (string, time.Time, error) {
		now := ts.now()
		assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":   creds.ClientEmail,
			"scope": scope,
			"aud":   creds.TokenURI,
			"iat":   now.Unix(),
			"exp":   now.Add(time.Hour).Unix(),
		}).SignedString(key)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("signing token assertion: %w", err)
		}
		form := url.Values{}
		form.Set("grant_type", jwtBearer)
		form.Set("assertion", assertion)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.TokenURI, strings.NewReader(form.Encode()))
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return exchangeToken(client, req, now)
	}
	return ts, nil
}

func newMetadataTokenSource(client *http.Client) *tokenSource {
	ts := &tokenSource{now: time.Now}
	ts.fetch = func(ctx context.Context) (string, time.Time, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataToken, nil)
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Metadata-Flavor", "Google")
		return exchangeToken(client, req, ts.now())
	}
	return ts
}

func exchangeToken(client *http.Client, req *http.Request, now time.Time) (string, time.Time, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, statusError("token request", resp)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, err
	}
	if body.AccessToken == "" {
		return "", time.Time{}, errors.New("token response missing access_token")
	}
	return body.AccessToken, now.Add(time.Duration(body.ExpiresIn) * time.Second), nil
}
