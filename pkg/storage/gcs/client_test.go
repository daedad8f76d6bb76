package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type fakeGCS struct {
	t           *testing.T
	key         *rsa.PrivateKey
	tokenCalls  atomic.Int32
	uploaded    map[string]string
	contentType string
	deleted     []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/token":
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, jwtBearer, r.PostForm.Get("grant_type"))
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(tok *jwt.Token) (any, error) {
			return &f.key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if err != nil || claims["iss"] != "uploader@example.iam.gserviceaccount.com" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.tokenCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
		return
	case r.Header.Get("Authorization") != "Bearer tok-1":
		w.WriteHeader(http.StatusUnauthorized)
		return
	case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/b/media/o":
		_, _ = io.WriteString(w, `{"items":[]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/upload/storage/v1/b/media/o":
		assert.Equal(f.t, "media", r.URL.Query().Get("uploadType"))
		body, _ := io.ReadAll(r.Body)
		f.uploaded[r.URL.Query().Get("name")] = string(body)
		f.contentType = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.EscapedPath(), "/storage/v1/b/media/o/"):
		object := strings.TrimPrefix(r.URL.Path, "/storage/v1/b/media/o/")
		switch object {
		case "gone.png":
			w.WriteHeader(http.StatusNotFound)
		case "locked.png":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "retention policy")
		default:
			f.deleted = append(f.deleted, object)
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeGCS) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	fake := &fakeGCS{t: t, key: key, uploaded: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	creds, err := json.Marshal(serviceAccount{
		ClientEmail: "uploader@example.iam.gserviceaccount.com",
		PrivateKey:  string(pemKey),
		TokenURI:    srv.URL + "/token",
	})
	require.NoError(t, err)
	ts, err := newServiceAccountTokenSource(srv.Client(), creds)
	require.NoError(t, err)

	client := newClient(srv.Client(), config.GCSConfig{
		BucketName:    "media",
		APIBaseURL:    srv.URL + "/",
		PublicBaseURL: "https://cdn.example.com",
	}, ts)
	return client, fake
}

func TestClientUploadAndPublicURL(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Upload(ctx, "products/p1/a.png", "image/png", strings.NewReader("png-bytes")))

	assert.Equal(t, "png-bytes", fake.uploaded["products/p1/a.png"])
	assert.Equal(t, "image/png", fake.contentType)
	assert.Equal(t, int32(1), fake.tokenCalls.Load(), "token should be cached between calls")

	u := client.PublicURL("products/p1/a.png")
	assert.Equal(t, "https://cdn.example.com/media/products/p1/a.png", u)
	object, ok := client.ObjectFromURL(u)
	assert.True(t, ok)
	assert.Equal(t, "products/p1/a.png", object)

	_, ok = client.ObjectFromURL("https://images.example.org/kurta.png")
	assert.False(t, ok)
}

func TestClientDelete(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Delete(ctx, "products/p1/a.png"))
	assert.Equal(t, []string{"products/p1/a.png"}, fake.deleted)

	assert.NoError(t, client.Delete(ctx, "gone.png"))

	err := client.Delete(ctx, "locked.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention policy")
}

func TestTokenSourceRefreshesNearExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	ts := &tokenSource{
		now: func() time.Time { return now },
		fetch: func(context.Context) (string, time.Time, error) {
			calls++
			return "tok", now.Add(2 * time.Minute), nil
		},
	}

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(90 * time.Second)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestServiceAccountRejectsBadCredentials(t *testing.T) {
	_, err := newServiceAccountTokenSource(http.DefaultClient, []byte(`{"client_email":"a@b"}`))
	assert.Error(t, err)

	_, err = newServiceAccountTokenSource(http.DefaultClient, []byte(`{"client_email":"a@b","private_key":"not a key"}`))
	assert.Error(t, err)
}
