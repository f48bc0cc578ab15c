package handlers

import (
	"net/http"

	"github.com/lexfield/regscout/internal/api"
	"github.com/lexfield/regscout/internal/crawler"
)

// AuditLog exposes the crawl attempt record kept by the crawl executor.
type AuditLog interface {
	Entries() []crawler.AuditEntry
	Clear()
}

type AuditHandler struct {
	audit AuditLog
}

func NewAuditHandler(audit AuditLog) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.audit.Entries())
}

func (h *AuditHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.audit.Clear()
	api.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
}
