package enums

import "fmt"

// WalletTransactionStatus tracks the lifecycle of a wallet ledger entry.
type WalletTransactionStatus string

const (
	WalletTransactionStatusPending WalletTransactionStatus = "pending"
	WalletTransactionStatusSuccess WalletTransactionStatus = "success"
	WalletTransactionStatusFail    WalletTransactionStatus = "fail"
)

var validWalletTransactionStatuses = []WalletTransactionStatus{
	WalletTransactionStatusPending,
	WalletTransactionStatusSuccess,
	WalletTransactionStatusFail,
}

// String implements fmt.Stringer.
func (w WalletTransactionStatus) String() string {
	return string(w)
}

// IsTerminal reports whether the status can no longer change.
func (w WalletTransactionStatus) IsTerminal() bool {
	return w == WalletTransactionStatusSuccess || w == WalletTransactionStatusFail
}

// IsValid reports whether the value is a known WalletTransactionStatus.
func (w WalletTransactionStatus) IsValid() bool {
	for _, candidate := range validWalletTransactionStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTransactionStatus converts raw input into a WalletTransactionStatus.
func ParseWalletTransactionStatus(value string) (WalletTransactionStatus, error) {
	for _, candidate := range validWalletTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction status %q", value)
}
