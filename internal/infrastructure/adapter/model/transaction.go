package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord represents the database model for settlement records
type TransactionRecord struct {
	ID                 string          `gorm:"primaryKey;size:64"`
	SubjectUserID      uint64          `gorm:"not null;index:idx_transactions_subject_created,priority:1"`
	Kind               string          `gorm:"not null;size:16"`
	Amount             decimal.Decimal `gorm:"type:varchar(80);not null"`
	Status             string          `gorm:"not null;size:16;index:idx_transactions_status_domain,priority:1"`
	LedgerDomain       string          `gorm:"not null;size:16;index:idx_transactions_status_domain,priority:2"`
	CounterpartyUserID *uint64         `gorm:"index:idx_transactions_counterparty_created,priority:1"`
	ExternalRef        *string         `gorm:"size:128;uniqueIndex:idx_transactions_external_ref"`
	ExternalHeight     *uint64
	ConfirmationRef    *string   `gorm:"size:128;uniqueIndex:idx_transactions_confirmation_ref"`
	FailureReason      string    `gorm:"type:text"`
	CreatedAt          time.Time `gorm:"not null;index:idx_transactions_subject_created,priority:2;index:idx_transactions_counterparty_created,priority:2;index"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName specifies the table name for TransactionRecord
func (TransactionRecord) TableName() string {
	return "transactions"
}
