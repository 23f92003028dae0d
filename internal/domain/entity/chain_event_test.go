package entity

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func TestChainEventNormalized(t *testing.T) {
	tests := []struct {
		name        string
		event       ChainEvent
		expectedErr error
	}{
		{"deposit", ChainEvent{Kind: ChainDeposit, Participants: []string{addrA}, Amount: decimal.NewFromInt(1), ExternalRef: "0xabc"}, nil},
		{"transfer", ChainEvent{Kind: ChainTransfer, Participants: []string{addrA, addrB}, Amount: decimal.NewFromInt(1), ExternalRef: "0xabc"}, nil},
		{"registration without amount", ChainEvent{Kind: ChainUserRegistered, Participants: []string{addrA}, ExternalRef: "0xreg"}, nil},
		{"unknown kind", ChainEvent{Kind: "mint", Participants: []string{addrA}, Amount: decimal.NewFromInt(1), ExternalRef: "0xabc"}, errs.ErrInvalidKind},
		{"transfer with one side", ChainEvent{Kind: ChainTransfer, Participants: []string{addrA}, Amount: decimal.NewFromInt(1), ExternalRef: "0xabc"}, errs.ErrValidation},
		{"missing ref", ChainEvent{Kind: ChainDeposit, Participants: []string{addrA}, Amount: decimal.NewFromInt(1)}, errs.ErrValidation},
		{"zero amount", ChainEvent{Kind: ChainWithdraw, Participants: []string{addrA}, Amount: decimal.Zero, ExternalRef: "0xabc"}, errs.ErrInvalidAmount},
		{"bad address", ChainEvent{Kind: ChainDeposit, Participants: []string{"nope"}, Amount: decimal.NewFromInt(1), ExternalRef: "0xabc"}, errs.ErrInvalidAddress},
		{"transfer to self", ChainEvent{Kind: ChainTransfer, Participants: []string{addrA, addrA}, Amount: decimal.NewFromInt(1), ExternalRef: "0xabc"}, errs.ErrSelfTransfer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.event.Normalized()
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestChainEventWireForm(t *testing.T) {
	payload := `{"kind":"transfer","participants":["0x1111111111111111111111111111111111111111","0x2222222222222222222222222222222222222222"],"amount":"2.5","externalRef":" 0xdef ","externalHeight":7}`

	var event ChainEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	normalized, err := event.Normalized()
	require.NoError(t, err)
	assert.Equal(t, "0xdef", normalized.ExternalRef)
	assert.Equal(t, uint64(7), normalized.ExternalHeight)
	assert.Equal(t, "2.5", normalized.Amount.String())

	kind, ok := normalized.SettlementKind()
	assert.True(t, ok)
	assert.Equal(t, KindTransfer, kind)
}
