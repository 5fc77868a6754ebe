package handler

import (
	"log/slog"
	"net/http"

	"github.com/xfsay/xmg-hall/internal/board"
	"github.com/xfsay/xmg-hall/internal/model"
)

// BoardHandler exposes the public board operations over HTTP.
//
// Handlers here only parse requests, call the board, and serialize results —
// validation, ordering, persistence, and the day boundary all live in the
// board package. That keeps every rule testable without HTTP.
type BoardHandler struct {
	board  *board.Board
	logger *slog.Logger
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(b *board.Board, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{board: b, logger: logger}
}

// listResponse is the shape shared by the public listing and the admin
// report listing: the items plus the day key they belong to.
type listResponse struct {
	Items  []model.PublicItem `json:"items"`
	DayKey string             `json:"dayKey"`
}

// HandleList returns all of today's items, newest first.
//
// HTTP: GET /api/items
func (h *BoardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, dayKey, err := h.board.ListToday()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, DayKey: dayKey})
}

// HandleCreate posts a new item.
//
// HTTP: POST /api/items
// REQUEST BODY: {"price": "4.99", "code": "SAVE20"}
//
// The response carries the delete token — the one and only time it is ever
// sent. The client stores it locally; the server will not repeat it.
func (h *BoardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price string `json:"price"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, token, err := h.board.Create(req.Price, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Item        model.PublicItem `json:"item"`
		DeleteToken string           `json:"deleteToken"`
	}{Item: item, DeleteToken: token})
}

// HandleDelete removes the caller's own item, authorized by the delete token
// issued at creation.
//
// HTTP: DELETE /api/items/{id}
// REQUEST BODY: {"token": "..."}
func (h *BoardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.board.DeleteByToken(r.PathValue("id"), req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleCopy bumps an item's copy counter.
//
// HTTP: POST /api/items/{id}/copy
func (h *BoardHandler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	count, err := h.board.IncrementCopy(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"copyCount": count})
}

// HandleReport files an abuse report, deduplicated per reporter id.
//
// HTTP: POST /api/items/{id}/report
// REQUEST BODY: {"reporterId": "..."}
func (h *BoardHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReporterID string `json:"reporterId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	count, already, err := h.board.Report(r.PathValue("id"), req.ReporterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ReportCount     int  `json:"reportCount"`
		AlreadyReported bool `json:"alreadyReported,omitempty"`
	}{ReportCount: count, AlreadyReported: already})
}

// HandleStats serves the counters the frontend uses for its countdown.
//
// HTTP: GET /api/stats
func (h *BoardHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.board.Stats()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		CountToday        int    `json:"countToday"`
		SecondsToMidnight int    `json:"secondsToMidnight"`
		ServerTime        int64  `json:"serverTime"`
		DayKey            string `json:"dayKey"`
	}{
		CountToday:        stats.ItemCount,
		SecondsToMidnight: stats.SecondsToMidnight,
		ServerTime:        stats.ServerTime,
		DayKey:            stats.DayKey,
	})
}

// HandleAnnouncement returns the active announcement, or null.
//
// HTTP: GET /api/announcement
func (h *BoardHandler) HandleAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := h.board.Announcement()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Announcement *model.Announcement `json:"announcement"`
	}{Announcement: a})
}
