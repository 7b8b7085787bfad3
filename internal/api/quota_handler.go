package api

import (
	"log/slog"
	"net/http"

	"github.com/cardforge/cardforge-api/internal/api/shared"
	"github.com/cardforge/cardforge-api/internal/quota"
)

// QuotaHandler exposes the shared daily LLM quota to clients so they can
// decide whether submitting a job now is worthwhile.
type QuotaHandler struct {
	ledger *quota.Ledger
	logger *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(ledger *quota.Ledger, logger *slog.Logger) *QuotaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaHandler{
		ledger: ledger,
		logger: logger.With(slog.String("component", "quota_handler")),
	}
}

// GetQuota handles GET /api/quota requests.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.ledger.Status())
}

// CheckProcessing handles GET /api/quota/check requests. The chunks query
// parameter is the estimated number of LLM calls the prospective job
// would make; the response is advisory and reserves nothing.
func (h *QuotaHandler) CheckProcessing(w http.ResponseWriter, r *http.Request) {
	chunks := queryInt(r, "chunks", 1)
	if chunks < 1 {
		chunks = 1
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.ledger.ValidateProcessing(chunks))
}
