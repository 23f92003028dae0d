package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/usecase/account"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/dto"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accounts usecase.AccountUseCase
	logger   coreport.Logger
}

// NewAccountHandler creates a new account handler instance
func NewAccountHandler(accounts usecase.AccountUseCase, logger coreport.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// CreateAccount handles POST /users
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAccountResponse(account))
}

// GetAccount handles GET /users/:userId
func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	details, err := h.accounts.GetAccountDetails(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountDetailsResponse(details))
}

// LinkWallet handles PUT /users/:userId/wallet
func (h *AccountHandler) LinkWallet(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.LinkWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format: "+err.Error())
		return
	}

	account, err := h.accounts.LinkExternalAddress(c.Request.Context(), userID, req.Address)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountResponse(account))
}

// ListAccounts handles GET /users
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	limit, ok := parseLimit(c, account.DefaultAccountsLimit)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListAccounts(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountResponses(accounts))
}

// ChainInfo handles GET /chain/info
func (h *AccountHandler) ChainInfo(c *gin.Context) {
	info, err := h.accounts.GetExternalLedgerInfo(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewChainInfoResponse(info))
}
