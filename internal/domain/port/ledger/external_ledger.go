package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Info describes the external ledger node the reader is connected to
type Info struct {
	Network         string
	Moniker         string
	LatestHeight    int64
	LatestBlockTime time.Time
	CatchingUp      bool
}

// ExternalLedger reads live state from the authoritative external ledger.
// Every method returns ErrExternalUnavailable when the ledger cannot be queried.
type ExternalLedger interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	IsRegistered(ctx context.Context, address string) (bool, error)
	Info(ctx context.Context) (*Info, error)
}
