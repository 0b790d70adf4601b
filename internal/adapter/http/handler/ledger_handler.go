package handler

import (
	"errors"
	"io"
	"time"

	"chat-ledger/internal/adapter/http/dto"
	"chat-ledger/internal/adapter/http/middleware"
	"chat-ledger/internal/core/domain"
	"chat-ledger/internal/core/ports"
	"chat-ledger/pkg/apperror"
	"chat-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes the ledger commands and queries to the chat bridge.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// ShowWallet handles GET /api/v1/wallets/me.
func (h *LedgerHandler) ShowWallet(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	wallet, err := h.ledgerSvc.ShowWallet(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// ListWallets handles GET /api/v1/wallets.
func (h *LedgerHandler) ListWallets(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	wallets, err := h.ledgerSvc.ListWallets(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, toWalletResponse(&wallets[i]))
	}
	response.OK(c, dto.ListResponse[dto.WalletResponse]{Items: items, Total: len(items)})
}

// LookupWallet handles GET /api/v1/wallets/:owner.
func (h *LedgerHandler) LookupWallet(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	wallet, err := h.ledgerSvc.LookupWallet(c.Request.Context(), caller, c.Param("owner"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// ListMints handles GET /api/v1/mints.
func (h *LedgerHandler) ListMints(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	mints, err := h.ledgerSvc.ListMints(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.MintResponse, 0, len(mints))
	for i := range mints {
		items = append(items, toMintResponse(&mints[i]))
	}
	response.OK(c, dto.ListResponse[dto.MintResponse]{Items: items, Total: len(items)})
}

// ListTransfers handles GET /api/v1/transfers.
func (h *LedgerHandler) ListTransfers(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	transfers, err := h.ledgerSvc.ListTransfers(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, toTransferResponse(&transfers[i]))
	}
	response.OK(c, dto.ListResponse[dto.TransferResponse]{Items: items, Total: len(items)})
}

// Mint handles POST /api/v1/mints.
func (h *LedgerHandler) Mint(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.MintRequest
	if err := bindCommand(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	mint, err := h.ledgerSvc.Mint(c.Request.Context(), ports.MintRequest{
		Caller:        caller,
		AmountText:    req.Amount,
		RecipientText: req.Recipient,
		CommandID:     c.GetString(middleware.CtxCommandID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toMintResponse(mint))
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := bindCommand(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	transfer, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		Caller:           caller,
		AmountText:       req.Amount,
		CounterpartyText: req.Recipient,
		CommandID:        c.GetString(middleware.CtxCommandID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toTransferResponse(transfer))
}

// Charge handles POST /api/v1/charges.
func (h *LedgerHandler) Charge(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.ChargeRequest
	if err := bindCommand(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	transfer, err := h.ledgerSvc.Charge(c.Request.Context(), ports.TransferRequest{
		Caller:           caller,
		AmountText:       req.Amount,
		CounterpartyText: req.Payer,
		CommandID:        c.GetString(middleware.CtxCommandID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toTransferResponse(transfer))
}

// callerOf returns the handle BridgeAuth put in the context. It writes the
// error response itself when there is none.
func callerOf(c *gin.Context) (string, bool) {
	caller := c.GetString(middleware.CtxCaller)
	if caller == "" {
		response.Error(c, apperror.ErrInvalidBridgeKey())
		return "", false
	}
	return caller, true
}

// bindCommand binds a JSON body and trims its string fields.
func bindCommand(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("request body is required")
		}
		return apperror.Validation(err.Error())
	}
	dto.SanitizeStruct(req)
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		Owner:     w.Owner.String(),
		Balance:   w.Balance.StringFixed(domain.AmountScale),
		CreatedAt: formatTime(w.CreatedAt),
		UpdatedAt: formatTime(w.UpdatedAt),
	}
}

func toMintResponse(m *domain.Mint) dto.MintResponse {
	return dto.MintResponse{
		ID:        m.ID.String(),
		Issuer:    m.Issuer.String(),
		Recipient: m.Recipient.String(),
		Amount:    m.Amount.StringFixed(domain.AmountScale),
		CreatedAt: formatTime(m.CreatedAt),
	}
}

func toTransferResponse(t *domain.Transfer) dto.TransferResponse {
	return dto.TransferResponse{
		ID:        t.ID.String(),
		Sender:    t.Sender.String(),
		Recipient: t.Recipient.String(),
		Amount:    t.Amount.StringFixed(domain.AmountScale),
		Kind:      string(t.Kind),
		CreatedAt: formatTime(t.CreatedAt),
	}
}
