package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/bank_ledger/internal/core/ports/services"
	"github.com/SscSPs/bank_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls}
}

// RegisterLedgerRoutes registers the transfer and history routes on an authenticated group.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	txns := rg.Group("/transactions")
	{
		txns.POST("/transfer", h.transfer)
		txns.GET("", h.listTransactions)
	}
}

// transfer godoc
// @Summary Transfer funds to another user
// @Description Moves an amount from one of the caller's accounts to the oldest account of the user registered under toEmail
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferRequest true "Transfer details"
// @Success 200 {object} dto.TransferResponse
// @Failure 400 {object} ErrorResponse "Invalid input or recipient has no account"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Sender account or recipient not found"
// @Failure 409 {object} ErrorResponse "Frozen account or insufficient funds"
// @Failure 500 {object} ErrorResponse "Failed to transfer"
// @Security BearerAuth
// @Router /transactions/transfer [post]
func (h *ledgerHandler) transfer(c *gin.Context) {
	ownerID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	receipt, err := h.ledgerService.Transfer(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransferResponse(receipt))
}

// listTransactions godoc
// @Summary List transactions
// @Description Lists the rows of all the caller's live accounts, newest first, with cursor pagination
// @Tags transactions
// @Produce  json
// @Param   limit query int false "Page size (1-200, default 50)"
// @Param   nextToken query string false "Cursor returned by the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} ErrorResponse "Invalid limit or token"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list transactions"
// @Security BearerAuth
// @Router /transactions [get]
func (h *ledgerHandler) listTransactions(c *gin.Context) {
	ownerID, ok := requireUserID(c)
	if !ok {
		return
	}
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.ledgerService.ListTransactions(c.Request.Context(), ownerID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
