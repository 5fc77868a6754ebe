package server_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xfsay/xmg-hall/internal/admin"
	"github.com/xfsay/xmg-hall/internal/board"
	"github.com/xfsay/xmg-hall/internal/server"
	"github.com/xfsay/xmg-hall/internal/store"
)

// newTestServer assembles the full stack — store, board, gate, router — the
// same way main.go does, against temp directories.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	b, err := board.New(store.New(t.TempDir(), logger), logger)
	if err != nil {
		t.Fatal(err)
	}

	publicDir := t.TempDir()
	privateDir := t.TempDir()
	mustWrite(t, filepath.Join(publicDir, "index.html"), "<h1>board</h1>")
	mustWrite(t, filepath.Join(publicDir, "app.js"), "console.log('board');")
	mustWrite(t, filepath.Join(privateDir, "admin.html"), "<h1>real console</h1>")
	mustWrite(t, filepath.Join(privateDir, "decoy.html"), "<h1>nothing here</h1>")

	gate := admin.NewGate("boss", "hunter2", "", nil)
	srv := server.New(server.Config{
		Port:       0,
		PublicDir:  publicDir,
		PrivateDir: privateDir,
	}, logger, b, gate, nil)

	return srv.Handler()
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRouting_ItemLifecycle(t *testing.T) {
	h := newTestServer(t)

	// Create through the real router.
	body, _ := json.Marshal(map[string]string{"price": "4.99", "code": "SAVE20"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/items", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)

	var created struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
		DeleteToken string `json:"deleteToken"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.NotEmpty(t, created.Item.ID)

	// Copy via the nested route — exercises path parameter extraction.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/items/"+created.Item.ID+"/copy", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"copyCount": 1}`, rr.Body.String())

	// Owner delete with the token from creation.
	delBody, _ := json.Marshal(map[string]string{"token": created.DeleteToken})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/items/"+created.Item.ID, bytes.NewReader(delBody)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.NotContains(t, rr.Body.String(), created.Item.ID)
}

func TestRouting_AdminGate(t *testing.T) {
	h := newTestServer(t)

	t.Run("rejected without credentials", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/reports", nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("accepted with basic auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/reports", nil)
		req.SetBasicAuth("boss", "hunter2")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("login route absent when sessions disabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
		req.SetBasicAuth("boss", "hunter2")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRouting_Pages(t *testing.T) {
	h := newTestServer(t)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	t.Run("real admin page", func(t *testing.T) {
		rr := get("/xmg-7f3")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "real console")
	})

	t.Run("admin page trailing slash redirects", func(t *testing.T) {
		rr := get("/xmg-7f3/")
		assert.Equal(t, http.StatusMovedPermanently, rr.Code)
		assert.Equal(t, "/xmg-7f3", rr.Header().Get("Location"))
	})

	t.Run("decoy on obvious paths", func(t *testing.T) {
		for _, path := range []string{"/admin", "/Admin"} {
			rr := get(path)
			assert.Equal(t, http.StatusOK, rr.Code, path)
			assert.Contains(t, rr.Body.String(), "nothing here", path)
		}
	})

	t.Run("decoy trailing slash redirects", func(t *testing.T) {
		rr := get("/admin/")
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/admin", rr.Header().Get("Location"))
	})

	t.Run("admin.html is a hard 404", func(t *testing.T) {
		rr := get("/admin.html")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("static fallthrough", func(t *testing.T) {
		// The root serves index.html via the file server's directory default.
		rr := get("/")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "board")

		rr = get("/app.js")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "console.log")
	})
}
