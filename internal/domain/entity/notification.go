package entity

// Severity classifies a user-facing notification
type Severity string

// Severities
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a status message for one user
type Notification struct {
	UserID   uint64   `json:"userId"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Label returns the user-facing noun for a settlement kind
func (k Kind) Label() string {
	switch k {
	case KindDeposit:
		return "Deposit"
	case KindWithdraw:
		return "Withdrawal"
	case KindTransfer:
		return "Transfer"
	default:
		return string(k)
	}
}
