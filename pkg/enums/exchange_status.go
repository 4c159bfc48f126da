package enums

import "fmt"

// ExchangeStatus tracks the negotiation state of a barter proposal.
type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "PENDING"
	ExchangeStatusAccepted  ExchangeStatus = "ACCEPTED"
	ExchangeStatusRejected  ExchangeStatus = "REJECTED"
	ExchangeStatusCompleted ExchangeStatus = "COMPLETED"
)

var validExchangeStatuses = []ExchangeStatus{
	ExchangeStatusPending,
	ExchangeStatusAccepted,
	ExchangeStatusRejected,
	ExchangeStatusCompleted,
}

// String implements fmt.Stringer.
func (e ExchangeStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExchangeStatus.
func (e ExchangeStatus) IsValid() bool {
	for _, candidate := range validExchangeStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExchangeStatus converts raw input into an ExchangeStatus.
func ParseExchangeStatus(value string) (ExchangeStatus, error) {
	for _, candidate := range validExchangeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange status %q", value)
}
