package dto

import (
	"time"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
)

// ChainEventAccepted acknowledges a relayed chain event
type ChainEventAccepted struct {
	ExternalRef string `json:"externalRef"`
	Status      string `json:"status"`
}

// ChainInfoResponse describes the external ledger node
type ChainInfoResponse struct {
	Network         string    `json:"network"`
	Moniker         string    `json:"moniker,omitempty"`
	LatestHeight    int64     `json:"latestHeight"`
	LatestBlockTime time.Time `json:"latestBlockTime"`
	CatchingUp      bool      `json:"catchingUp"`
}

func NewChainInfoResponse(info *ledger.Info) ChainInfoResponse {
	return ChainInfoResponse{
		Network:         info.Network,
		Moniker:         info.Moniker,
		LatestHeight:    info.LatestHeight,
		LatestBlockTime: info.LatestBlockTime.UTC(),
		CatchingUp:      info.CatchingUp,
	}
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
