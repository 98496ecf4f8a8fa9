package transfer

// CommandResult is the outcome contract for a transfer request. Domain
// failures are reported here rather than as errors; infrastructure failures
// are returned as errors alongside a zero result.
type CommandResult struct {
	Success       bool
	Message       string
	TransactionID string
}

const (
	msgCompleted         = "transfer completed"
	msgInvalidAmount     = "amount must be positive"
	msgSameWallet        = "source and destination wallets must differ"
	msgSourceNotFound    = "source wallet not found"
	msgTargetNotFound    = "destination wallet not found"
	msgInsufficientFunds = "insufficient funds"
	msgWalletDisappeared = "wallet no longer exists"
	msgTransferFailed    = "transfer failed"
)
