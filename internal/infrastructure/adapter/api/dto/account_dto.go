package dto

import (
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
)

// CreateAccountRequest represents the API request for creating an account
type CreateAccountRequest struct {
	UserID uint64 `json:"userId" binding:"required"`
}

// LinkWalletRequest represents the API request for linking an external address
type LinkWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// AccountResponse represents an account after creation or linking
type AccountResponse struct {
	UserID             uint64 `json:"userId"`
	InternalBalance    string `json:"internalBalance"`
	ExternalAddress    string `json:"externalAddress,omitempty"`
	ExternalRegistered bool   `json:"externalRegistered"`
}

// AccountDetailsResponse combines internal and live external balances
type AccountDetailsResponse struct {
	UserID             uint64 `json:"userId"`
	ExternalAddress    string `json:"externalAddress,omitempty"`
	InternalBalance    string `json:"internalBalance"`
	ExternalBalance    string `json:"externalBalance"`
	Total              string `json:"total"`
	ExternalRegistered bool   `json:"externalRegistered"`
	ExternalAvailable  bool   `json:"externalAvailable"`
}

func NewAccountResponse(account *entity.AccountLedger) AccountResponse {
	resp := AccountResponse{
		UserID:             account.UserID,
		InternalBalance:    entity.FormatAmount(account.InternalBalance()),
		ExternalRegistered: account.ExternalRegistered,
	}
	if account.HasExternalAddress() {
		resp.ExternalAddress = *account.ExternalAddress
	}
	return resp
}

func NewAccountResponses(accounts []*entity.AccountLedger) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, NewAccountResponse(account))
	}
	return out
}

func NewAccountDetailsResponse(details *usecase.AccountDetails) AccountDetailsResponse {
	return AccountDetailsResponse{
		UserID:             details.UserID,
		ExternalAddress:    details.ExternalAddress,
		InternalBalance:    entity.FormatAmount(details.InternalBalance),
		ExternalBalance:    entity.FormatAmount(details.ExternalBalance),
		Total:              entity.FormatAmount(details.Total),
		ExternalRegistered: details.ExternalRegistered,
		ExternalAvailable:  details.ExternalAvailable,
	}
}
