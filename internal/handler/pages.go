package handler

import (
	"log/slog"
	"net/http"
	"path/filepath"
)

// PageHandler serves the HTML surfaces around the API: the public static
// site, the real admin page on an unguessable path, and a decoy admin page
// on the obvious one.
//
// SECURITY THROUGH OBSCURITY? NOT QUITE.
// The real admin page at /xmg-7f3 is still fully protected by the access
// gate — every privileged API call it makes is independently authorized.
// The decoy at /admin only exists to give automated scanners something
// boring to chew on while their probes show up in the request log.
type PageHandler struct {
	publicDir  string
	adminPage  string
	decoyPage  string
	fileServer http.Handler
	logger     *slog.Logger
}

// NewPageHandler creates a PageHandler serving the public directory at the
// site root and the two private pages from privateDir.
func NewPageHandler(publicDir, privateDir string, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		publicDir:  publicDir,
		adminPage:  filepath.Join(privateDir, "admin.html"),
		decoyPage:  filepath.Join(privateDir, "decoy.html"),
		fileServer: http.FileServer(http.Dir(publicDir)),
		logger:     logger,
	}
}

// HandleAdminPage serves the real admin console.
//
// HTTP: GET /xmg-7f3
func (h *PageHandler) HandleAdminPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, h.adminPage)
}

// HandleAdminPageRedirect normalises the trailing-slash variant.
//
// HTTP: GET /xmg-7f3/ → 301 /xmg-7f3
func (h *PageHandler) HandleAdminPageRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/xmg-7f3", http.StatusMovedPermanently)
}

// HandleDecoyPage serves the decoy console at the guessable paths.
//
// HTTP: GET /admin, GET /Admin
func (h *PageHandler) HandleDecoyPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, h.decoyPage)
}

// HandleDecoyRedirect normalises the trailing-slash variants of the decoy.
//
// HTTP: GET /admin/, GET /Admin/ → 302 /admin
func (h *PageHandler) HandleDecoyRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// HandleAdminHTML hard-404s /admin.html so the static file server can never
// be tricked into exposing anything under that name.
func (h *PageHandler) HandleAdminHTML(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}

// HandleStatic serves everything else from the public directory.
func (h *PageHandler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	h.fileServer.ServeHTTP(w, r)
}
