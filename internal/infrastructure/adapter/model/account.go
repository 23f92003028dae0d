package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents the database model for account ledgers.
// Balances are stored as decimal text so that sqlite keeps all 18 fractional digits.
type Account struct {
	UserID             uint64          `gorm:"primaryKey;autoIncrement:false"`
	InternalBalance    decimal.Decimal `gorm:"type:varchar(80);not null"`
	ExternalAddress    *string         `gorm:"size:42;uniqueIndex:idx_accounts_external_address"`
	ExternalRegistered bool            `gorm:"not null;default:false"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}
