package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/service"
)

// CardHandler handles card administration and card holder requests.
type CardHandler struct {
	cards  service.CardService
	ledger service.LedgerService
	logger *slog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(cards service.CardService, ledger service.LedgerService, logger *slog.Logger) *CardHandler {
	if cards == nil || ledger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("card and ledger services cannot be nil for CardHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		cards:  cards,
		ledger: ledger,
		logger: logger.With(slog.String("component", "card_handler")),
	}
}

// CreateCard handles POST /cards. It issues a card to the user with the given
// phone.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.cards.GenerateCard(r.Context(), req.Phone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// DeleteCard handles DELETE /cards.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	var req CardNumberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.cards.DeleteCard(r.Context(), req.CardNumber); err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeCardStatus handles PUT /cards/status.
func (h *CardHandler) ChangeCardStatus(w http.ResponseWriter, r *http.Request) {
	var req CardStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.cards.ChangeCardStatus(r.Context(), req.CardNumber, req.Status); err != nil {
		HandleAPIError(w, r, err, "Failed to change card status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCards handles GET /cards?page=&size=.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	infos, err := h.cards.ListCards(r.Context(), page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, infos)
}

// ListBlockRequests handles GET /cards/block-requests?page=&size=.
func (h *CardHandler) ListBlockRequests(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	infos, err := h.cards.ListBlockRequests(r.Context(), page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list block requests")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, infos)
}

// ListMyCards handles GET /cards/me?page=&size=.
func (h *CardHandler) ListMyCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	infos, err := h.cards.ListMyCards(r.Context(), userID, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, infos)
}

// RequestBlock handles POST /cards/me/block-request.
func (h *CardHandler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	var req CardNumberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.cards.RequestBlock(r.Context(), req.CardNumber, userID); err != nil {
		HandleAPIError(w, r, err, "Failed to request card block")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles POST /cards/me/balance. The card number travels in the
// body so that it never appears in URLs or access logs.
func (h *CardHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	var req CardNumberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	balance, err := h.cards.GetBalance(r.Context(), req.CardNumber, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get balance")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, BalanceResponse{Balance: balance})
}

// Transfer handles POST /cards/me/transfers.
func (h *CardHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	var req TransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.ledger.Transfer(r.Context(), service.TransferRequest{
		From:   req.FromCard,
		To:     req.ToCard,
		Amount: req.Amount,
	}, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to transfer money")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
