package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

const testSecret = "e2e-secret"

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := &config.Config{
		Env:     config.EnvDev,
		Storage: config.Storage{Driver: config.DriverSQLite},
		SQLite:  config.SQLite{Path: filepath.Join(t.TempDir(), "shortlink.db"), MaxOpenConns: 1},
		Shortener: config.Shortener{
			BaseURL:    "http://sho.rt",
			SlugLength: 6,
			MaxRetries: 5,
			Provider:   config.ProviderLocal,
		},
		Auth: config.Auth{JWTSecret: testSecret},
	}

	logger := httplog.NewLogger("", httplog.Options{Writer: io.Discard})

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return a
}

func bearer(t *testing.T, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return "Bearer " + signed
}

func TestApp_EndToEnd(t *testing.T) {
	a := newTestApp(t)

	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)

	e := httpexpect.Default(t, server.URL)
	auth := bearer(t, "user-1")

	created := e.POST("/api/v1/shorten").
		WithHeader("Authorization", auth).
		WithJSON(map[string]string{"url": "example.com/docs"}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()

	created.HasValue("original_url", "https://example.com/docs")
	created.HasValue("clicks", 0)

	slug := created.Value("slug").String().Raw()
	assert.Regexp(t, `^[0-9a-z]{6}$`, slug)
	created.HasValue("short_url", "http://sho.rt/s/"+slug)

	e.GET("/s/"+slug).
		WithRedirectPolicy(httpexpect.DontFollowRedirects).
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("https://example.com/docs")

	// Clicks are counted in the background.
	a.Links().Wait()

	e.GET("/s/unknown").
		WithRedirectPolicy(httpexpect.DontFollowRedirects).
		Expect().
		Status(http.StatusNotFound).
		Text().IsEqual("Not found\n")

	e.GET("/s/").
		WithRedirectPolicy(httpexpect.DontFollowRedirects).
		Expect().
		Status(http.StatusBadRequest).
		Text().IsEqual("Missing slug\n")

	links := e.GET("/api/v1/links").
		WithHeader("Authorization", auth).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("links").Array()

	links.Length().IsEqual(1)
	links.Value(0).Object().
		HasValue("slug", slug).
		HasValue("clicks", 1)

	e.GET("/api/v1/links/"+slug).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		HasValue("clicks", 1)

	e.GET("/api/v1/links").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("links").Array().IsEmpty()

	e.GET("/api/v1/links").
		WithHeader("Authorization", bearer(t, "user-2")).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("links").Array().IsEmpty()
}

func TestApp_Links(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	first, err := a.Links().ShortenURL(ctx, "https://example.com/1", "cli")
	require.NoError(t, err)

	second, err := a.Links().ShortenURL(ctx, "https://example.com/2", "cli")
	require.NoError(t, err)

	links, err := a.Links().ListLinks(ctx, "cli")
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, second.Slug, links[0].Slug)
	assert.Equal(t, first.Slug, links[1].Slug)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{Driver: "mongo"}}

	a, err := New(context.Background(), cfg, httplog.NewLogger("", httplog.Options{Writer: io.Discard}))

	assert.ErrorIs(t, err, config.ErrUnknownDriver)
	assert.Nil(t, a)
}

func TestApp_NewServer_RequestsOutliveRunContext(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	server := a.newServer(ctx)
	cancel()

	assert.NoError(t, server.BaseContext(nil).Err())
}

func TestApp_Run_Shutdown(t *testing.T) {
	a := newTestApp(t)
	a.cfg.HTTPServer = config.HTTPServer{Port: 0, ShutdownTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- a.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}
}
