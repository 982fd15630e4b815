package handlers

import (
	"net/http"

	"sunar-backend/internal/health"
	"sunar-backend/pkg/utils"
)

type HealthHandler struct {
	Checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{Checker: checker}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.Checker.CheckBasic()
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}

// LedgerHealth audits every udhaar record's running balance against the sum
// of its entries and counts bills still waiting on a ledger entry. A
// divergence means a bug somewhere in the payment paths.
func (h *HealthHandler) LedgerHealth(w http.ResponseWriter, r *http.Request) {
	audit, err := h.Checker.CheckLedger(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}

	code := http.StatusOK
	if audit.DivergedRecords > 0 || audit.OrphanedBills > 0 {
		code = http.StatusInternalServerError
	}
	utils.JSON(w, code, audit)
}
