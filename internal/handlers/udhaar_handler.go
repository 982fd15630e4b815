package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"sunar-backend/internal/middleware"
	"sunar-backend/internal/services"
	"sunar-backend/pkg/utils"
)

type UdhaarHandler struct {
	Udhaar  *services.UdhaarService
	Billing *services.BillingService
}

func NewUdhaarHandler(udhaar *services.UdhaarService, billing *services.BillingService) *UdhaarHandler {
	return &UdhaarHandler{Udhaar: udhaar, Billing: billing}
}

// ListOutstanding returns customers with money owed, largest first.
func (h *UdhaarHandler) ListOutstanding(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.Udhaar.ListOutstanding(r.Context(), ownerID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, records)
}

// GetDetail returns one customer's full ledger with per-bill payment trails.
func (h *UdhaarHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	phone := mux.Vars(r)["phone"]
	record, err := h.Udhaar.GetDetail(r.Context(), ownerID, phone)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, record)
}

type udhaarPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RecordPayment takes a customer-level payment and spreads it oldest bill
// first across the customer's outstanding udhaar bills.
func (h *UdhaarHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	phone := mux.Vars(r)["phone"]

	var req udhaarPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.Billing.RecordCreditPayment(r.Context(), ownerID, phone, req.Amount)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, record)
}
