package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xfsay/xmg-hall/internal/board"
	"github.com/xfsay/xmg-hall/internal/handler"
	"github.com/xfsay/xmg-hall/internal/model"
	"github.com/xfsay/xmg-hall/internal/store"
)

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b, err := board.New(store.New(t.TempDir(), logger), logger)
	if err != nil {
		t.Fatalf("creating test board: %v", err)
	}
	return b
}

func newBoardHandler(t *testing.T) (*handler.BoardHandler, *board.Board) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b := newTestBoard(t)
	return handler.NewBoardHandler(b, logger), b
}

// createItem posts an item through the handler and returns the decoded
// response (public item + delete token).
func createItem(t *testing.T, h *handler.BoardHandler, price, code string) (model.PublicItem, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"price": price, "code": code})
	req := httptest.NewRequest(http.MethodPost, "/api/items", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.HandleCreate(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("create failed: status %d body %s", rr.Code, rr.Body.String())
	}

	var res struct {
		Item        model.PublicItem `json:"item"`
		DeleteToken string           `json:"deleteToken"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	return res.Item, res.DeleteToken
}

func TestBoardHandler_HandleList(t *testing.T) {
	h, _ := newBoardHandler(t)

	t.Run("empty board", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		rr := httptest.NewRecorder()

		h.HandleList(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res struct {
			Items  []model.PublicItem `json:"items"`
			DayKey string             `json:"dayKey"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Empty(t, res.Items)
		assert.NotEmpty(t, res.DayKey)
	})

	t.Run("after create", func(t *testing.T) {
		created, _ := createItem(t, h, "4.99", "SAVE20")

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		var res struct {
			Items []model.PublicItem `json:"items"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Len(t, res.Items, 1)
		assert.Equal(t, created.ID, res.Items[0].ID)
	})

	t.Run("delete token never listed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.NotContains(t, rr.Body.String(), "deleteToken")
		assert.NotContains(t, rr.Body.String(), "reporters")
	})
}

func TestBoardHandler_HandleCreate(t *testing.T) {
	h, _ := newBoardHandler(t)

	t.Run("valid item", func(t *testing.T) {
		item, token := createItem(t, h, "4.99", "SAVE20")
		assert.NotEmpty(t, item.ID)
		assert.NotEmpty(t, token)
		assert.Equal(t, "4.99", item.Price)
		assert.Zero(t, item.CopyCount)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"price":`))
		rr := httptest.NewRecorder()

		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "validation_error")
	})

	t.Run("missing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()

		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("price too long", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"price": strings.Repeat("x", board.MaxPriceLength+1),
			"code":  "ok",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/items", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		h.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestBoardHandler_HandleDelete(t *testing.T) {
	h, _ := newBoardHandler(t)
	item, token := createItem(t, h, "4.99", "SAVE20")

	deleteReq := func(id, tok string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"token": tok})
		req := httptest.NewRequest(http.MethodDelete, "/api/items/"+id, bytes.NewReader(body))
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.HandleDelete(rr, req)
		return rr
	}

	t.Run("missing token", func(t *testing.T) {
		rr := deleteReq(item.ID, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		rr := deleteReq(item.ID, "wrong")
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "forbidden")
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := deleteReq("missing", token)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("correct token", func(t *testing.T) {
		rr := deleteReq(item.ID, token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"ok": true}`, rr.Body.String())
	})
}

func TestBoardHandler_HandleCopy(t *testing.T) {
	h, _ := newBoardHandler(t)
	item, _ := createItem(t, h, "4.99", "SAVE20")

	copyReq := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/items/"+id+"/copy", nil)
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.HandleCopy(rr, req)
		return rr
	}

	rr := copyReq(item.ID)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"copyCount": 1}`, rr.Body.String())

	rr = copyReq(item.ID)
	assert.JSONEq(t, `{"copyCount": 2}`, rr.Body.String())

	rr = copyReq("missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBoardHandler_HandleReport(t *testing.T) {
	h, _ := newBoardHandler(t)
	item, _ := createItem(t, h, "4.99", "SAVE20")

	reportReq := func(id, reporter string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"reporterId": reporter})
		req := httptest.NewRequest(http.MethodPost, "/api/items/"+id+"/report", bytes.NewReader(body))
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.HandleReport(rr, req)
		return rr
	}

	t.Run("first report", func(t *testing.T) {
		rr := reportReq(item.ID, "r1")
		assert.Equal(t, http.StatusOK, rr.Code)
		// alreadyReported is omitted when false, so the happy path stays lean.
		assert.JSONEq(t, `{"reportCount": 1}`, rr.Body.String())
	})

	t.Run("repeat report", func(t *testing.T) {
		rr := reportReq(item.ID, "r1")
		assert.JSONEq(t, `{"reportCount": 1, "alreadyReported": true}`, rr.Body.String())
	})

	t.Run("missing reporter id", func(t *testing.T) {
		rr := reportReq(item.ID, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown item", func(t *testing.T) {
		rr := reportReq("missing", "r1")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBoardHandler_HandleStats(t *testing.T) {
	h, _ := newBoardHandler(t)
	createItem(t, h, "4.99", "SAVE20")

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	h.HandleStats(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		CountToday        int    `json:"countToday"`
		SecondsToMidnight int    `json:"secondsToMidnight"`
		ServerTime        int64  `json:"serverTime"`
		DayKey            string `json:"dayKey"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, 1, res.CountToday)
	assert.GreaterOrEqual(t, res.SecondsToMidnight, 0)
	assert.NotZero(t, res.ServerTime)
	assert.NotEmpty(t, res.DayKey)
}

func TestBoardHandler_HandleAnnouncement(t *testing.T) {
	h, _ := newBoardHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/announcement", nil)
	rr := httptest.NewRecorder()
	h.HandleAnnouncement(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"announcement": null}`, rr.Body.String())
}
