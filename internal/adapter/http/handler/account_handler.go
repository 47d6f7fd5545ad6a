package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankrecon/internal/adapter/http/dto"
	"github.com/iho/bankrecon/internal/domain"
	"github.com/iho/bankrecon/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.BankAccount, error)
	GetAccount(ctx context.Context, id string) (*domain.BankAccount, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.BankAccount, error)
	CloseAccount(ctx context.Context, id, actor string) (*domain.BankAccount, error)
	LinkExternalChannel(ctx context.Context, id, shortCode, actor string) (*domain.BankAccount, error)
}

// AccountHandler handles bank account HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create registers a new bank account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput(actorFrom(r)))
	if err != nil {
		respondError(w, r, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, r, "failed to list accounts", err)
		return
	}

	resp := dto.ListAccountsResponse{
		Accounts: make([]*dto.AccountResponse, len(accounts)),
		Total:    int64(len(accounts)),
	}
	for i, a := range accounts {
		resp.Accounts[i] = dto.AccountFromDomain(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Close closes an account.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountUC.CloseAccount(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		respondError(w, r, "failed to close account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// LinkChannel links the account to an external payment channel.
func (h *AccountHandler) LinkChannel(w http.ResponseWriter, r *http.Request) {
	var req dto.LinkChannelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.LinkExternalChannel(r.Context(), chi.URLParam(r, "id"), req.ShortCode, actorFrom(r))
	if err != nil {
		respondError(w, r, "failed to link channel", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
