package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	AddTransaction(ctx context.Context, input usecase.AddTransactionInput) (*domain.BankTransaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.BankTransaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.BankTransaction, error)
	ExcludeTransaction(ctx context.Context, id, reason, actor string) (*domain.BankTransaction, error)
	DeleteTransaction(ctx context.Context, id, actor string) (*domain.BankTransaction, error)
}

// TransactionHandler handles bank transaction HTTP requests.
type TransactionHandler struct {
	txnUC TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txnUC TransactionService) *TransactionHandler {
	return &TransactionHandler{txnUC: txnUC}
}

// Add records a statement line on the account in the URL.
func (h *TransactionHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		respondError(w, r, "invalid transaction", err)
		return
	}

	txn, err := h.txnUC.AddTransaction(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to add transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// List lists an account's transactions, filtered by match_status, from and to.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.TransactionFilter{AccountID: chi.URLParam(r, "id")}

	if status := r.URL.Query().Get("match_status"); status != "" {
		ms := domain.MatchStatus(status)
		filter.MatchStatus = &ms
	}

	var err error
	if filter.From, err = optionalDateQuery(r, "from"); err != nil {
		respondError(w, r, "invalid filter", err)
		return
	}
	if filter.To, err = optionalDateQuery(r, "to"); err != nil {
		respondError(w, r, "invalid filter", err)
		return
	}

	txns, err := h.txnUC.ListTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.txnUC.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Exclude removes an unmatched transaction from matching.
func (h *TransactionHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	var req dto.ExcludeTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	txn, err := h.txnUC.ExcludeTransaction(r.Context(), chi.URLParam(r, "id"), req.Reason, actorFrom(r))
	if err != nil {
		respondError(w, r, "failed to exclude transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Delete soft-deletes an unmatched transaction.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	txn, err := h.txnUC.DeleteTransaction(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		respondError(w, r, "failed to delete transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}
