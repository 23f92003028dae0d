package ledger

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmthttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/shopspring/decimal"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	ledgerport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
)

// ABCI query paths served by the external ledger application
const (
	BalancePath    = "/balance"
	RegisteredPath = "/registered"
)

// abciQuerier is the subset of the CometBFT RPC client the reader needs
type abciQuerier interface {
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*coretypes.ResultABCIQuery, error)
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
}

// CometBFTConfig points the reader at a CometBFT RPC endpoint
type CometBFTConfig struct {
	RPCURL  string
	Timeout time.Duration
}

// CometBFTLedger reads balances and registrations through ABCI queries
type CometBFTLedger struct {
	client  abciQuerier
	timeout time.Duration
	logger  coreport.Logger
}

var _ ledgerport.ExternalLedger = (*CometBFTLedger)(nil)

// NewCometBFTLedger creates an HTTP RPC client for the configured node
func NewCometBFTLedger(config CometBFTConfig, logger coreport.Logger) (*CometBFTLedger, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client, err := cmthttp.NewWithClient(config.RPCURL, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create CometBFT client: %w", err)
	}

	logger.Info("External ledger reader configured", map[string]any{
		"rpc_url": config.RPCURL,
		"timeout": timeout.String(),
	})
	return newCometBFTLedger(client, timeout, logger), nil
}

func newCometBFTLedger(client abciQuerier, timeout time.Duration, logger coreport.Logger) *CometBFTLedger {
	return &CometBFTLedger{client: client, timeout: timeout, logger: logger}
}

// query runs one ABCI query and returns the response value.
// Transport failures and non-zero response codes both mean the ledger is unavailable.
func (l *CometBFTLedger) query(ctx context.Context, path, address string) ([]byte, error) {
	normalized, err := entity.NormalizeAddress(address)
	if err != nil {
		return nil, errs.NewValidationError("address", "must be a 20-byte hex address", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	result, err := l.client.ABCIQuery(queryCtx, path, cmtbytes.HexBytes(normalized))
	if err != nil {
		l.logger.Warn("External ledger query failed", map[string]any{
			"path":    path,
			"address": normalized,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("%w: %s query: %s", errs.ErrExternalUnavailable, path, err.Error())
	}

	response := result.Response
	if response.Code != 0 {
		l.logger.Warn("External ledger rejected query", map[string]any{
			"path":    path,
			"address": normalized,
			"code":    response.Code,
			"log":     response.Log,
		})
		return nil, fmt.Errorf("%w: %s query returned code %d: %s", errs.ErrExternalUnavailable, path, response.Code, response.Log)
	}
	return response.Value, nil
}

// Balance returns the live external balance of address. An address unknown to the ledger has zero balance.
func (l *CometBFTLedger) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	value, err := l.query(ctx, BalancePath, address)
	if err != nil {
		return decimal.Zero, err
	}

	raw := strings.TrimSpace(string(value))
	if raw == "" {
		return decimal.Zero, nil
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed balance %q", errs.ErrExternalUnavailable, raw)
	}
	return balance, nil
}

// IsRegistered reports whether address is registered on the external ledger
func (l *CometBFTLedger) IsRegistered(ctx context.Context, address string) (bool, error) {
	value, err := l.query(ctx, RegisteredPath, address)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case "1", "true":
		return true, nil
	case "", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: malformed registration flag %q", errs.ErrExternalUnavailable, value)
	}
}

// Info reports the network and sync state of the connected node
func (l *CometBFTLedger) Info(ctx context.Context) (*ledgerport.Info, error) {
	statusCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	status, err := l.client.Status(statusCtx)
	if err != nil {
		l.logger.Warn("External ledger status failed", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: status: %s", errs.ErrExternalUnavailable, err.Error())
	}

	return &ledgerport.Info{
		Network:         status.NodeInfo.Network,
		Moniker:         status.NodeInfo.Moniker,
		LatestHeight:    status.SyncInfo.LatestBlockHeight,
		LatestBlockTime: status.SyncInfo.LatestBlockTime,
		CatchingUp:      status.SyncInfo.CatchingUp,
	}, nil
}
