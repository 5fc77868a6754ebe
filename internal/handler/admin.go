package handler

import (
	"log/slog"
	"net/http"

	"github.com/xfsay/xmg-hall/internal/admin"
	"github.com/xfsay/xmg-hall/internal/apperror"
	"github.com/xfsay/xmg-hall/internal/board"
	"github.com/xfsay/xmg-hall/internal/model"
)

// AdminHandler exposes the privileged operations: publishing announcements,
// listing reported items, deleting arbitrary items, and the optional login
// session.
//
// Every handler checks the gate itself rather than relying on a middleware:
// these routes must fail closed even if someone rewires the router, and the
// uniform 403 body should come from the same writeError path as everything
// else.
type AdminHandler struct {
	board  *board.Board
	gate   *admin.Gate
	tokens *admin.TokenService // nil when sessions are disabled
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler. tokens may be nil.
func NewAdminHandler(b *board.Board, gate *admin.Gate, tokens *admin.TokenService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{board: b, gate: gate, tokens: tokens, logger: logger}
}

// authorize applies the gate and logs rejected attempts. Returns false after
// writing the 403 response when the caller is not authorized.
func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.gate.Authorize(r) {
		return true
	}
	h.logger.Warn("admin auth rejected",
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr),
	)
	writeError(w, apperror.Forbidden("admin auth invalid"))
	return false
}

// HandlePublishAnnouncement sets or clears the announcement slot.
//
// HTTP: POST /api/admin/announcement
// REQUEST BODY: {"text": "..."} — empty text clears the slot.
func (h *AdminHandler) HandlePublishAnnouncement(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.board.PublishAnnouncement(req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Announcement *model.Announcement `json:"announcement"`
	}{Announcement: a})
}

// HandleListReported returns the items with at least one report, most
// reported first.
//
// HTTP: GET /api/admin/reports
func (h *AdminHandler) HandleListReported(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	items, dayKey, err := h.board.ListReported()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, DayKey: dayKey})
}

// HandleAdminDelete removes any item, no token required.
//
// HTTP: DELETE /api/admin/items/{id}
func (h *AdminHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	if err := h.board.DeleteByAdmin(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleLogin exchanges gate credentials for a session cookie, so the admin
// page doesn't have to hold raw credentials after the first request.
//
// HTTP: POST /api/admin/login
//
// Only registered when sessions are configured. The credentials themselves
// travel the same way as for any other admin route (Basic auth header or
// shared key), which is why this handler has no body to parse.
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	token, err := h.tokens.Generate()
	if err != nil {
		h.logger.Error("session token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, admin.SessionCookie(token))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleLogout clears the session cookie. Deliberately ungated: logging out
// with an expired session should still succeed.
//
// HTTP: POST /api/admin/logout
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, admin.ClearSessionCookie())
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
