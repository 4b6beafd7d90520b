package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes carried by GenericError.
const (
	MemoTooLongErrorCode   = 0
	SelfTransferErrorCode  = 1
	InvalidAmountErrorCode = 2
)

// BadFeeError rejects a request whose explicit fee does not match the
// configured transfer fee.
type BadFeeError struct {
	ExpectedFee decimal.Decimal
}

func (e *BadFeeError) Error() string {
	return fmt.Sprintf("bad fee: expected %s", e.ExpectedFee)
}

// TooOldError rejects a request whose created_at_time fell out of the
// deduplication window.
type TooOldError struct{}

func (e *TooOldError) Error() string { return "transaction too old" }

// CreatedInFutureError rejects a request timestamped beyond the permitted
// clock drift.
type CreatedInFutureError struct {
	LedgerTime int64
}

func (e *CreatedInFutureError) Error() string {
	return fmt.Sprintf("transaction created in the future: ledger time %d", e.LedgerTime)
}

// DuplicateError rejects a retry of an already-applied request, naming the
// block it was applied in.
type DuplicateError struct {
	DuplicateOf uint64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of block %d", e.DuplicateOf)
}

// InsufficientFundsError rejects a debit exceeding the source balance.
type InsufficientFundsError struct {
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s", e.Balance)
}

// BadBurnError rejects a burn below the minimum burn amount.
type BadBurnError struct {
	MinBurnAmount decimal.Decimal
}

func (e *BadBurnError) Error() string {
	return fmt.Sprintf("bad burn: minimum burn amount %s", e.MinBurnAmount)
}

// TemporarilyUnavailableError signals the ledger cannot serve the request
// right now and the client should retry.
type TemporarilyUnavailableError struct{}

func (e *TemporarilyUnavailableError) Error() string { return "ledger temporarily unavailable" }

// GenericError carries a machine-readable code for rejections outside the
// standard variant set.
type GenericError struct {
	ErrorCode int
	Message   string
}

func (e *GenericError) Error() string {
	return fmt.Sprintf("ledger error %d: %s", e.ErrorCode, e.Message)
}

// AllowanceChangedError rejects an approval whose expected allowance no
// longer matches the current one.
type AllowanceChangedError struct {
	CurrentAllowance decimal.Decimal
}

func (e *AllowanceChangedError) Error() string {
	return fmt.Sprintf("allowance changed: current allowance %s", e.CurrentAllowance)
}

// InsufficientAllowanceError rejects a delegated transfer exceeding the
// spender's allowance.
type InsufficientAllowanceError struct {
	Allowance decimal.Decimal
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance: %s", e.Allowance)
}

// asApproveError maps a transfer-pipeline rejection onto the approval
// surface. InsufficientFunds is representable there (the approval fee must
// be covered), but BadBurn cannot arise while classifying an approval, so
// seeing one means the pipeline itself is broken and the call must abort
// rather than return a malformed error.
func asApproveError(err error) error {
	switch err.(type) {
	case *BadBurnError:
		panic(fmt.Sprintf("cannot map transfer error onto the approval surface: %v", err))
	default:
		return err
	}
}

// asTransferFromError maps a transfer-pipeline rejection onto the
// delegated-transfer surface. Every transfer variant is representable
// there, so the mapping is the identity.
func asTransferFromError(err error) error { return err }

func rejectionReason(err error) string {
	switch err.(type) {
	case *BadFeeError:
		return "bad_fee"
	case *TooOldError:
		return "too_old"
	case *CreatedInFutureError:
		return "created_in_future"
	case *DuplicateError:
		return "duplicate"
	case *InsufficientFundsError:
		return "insufficient_funds"
	case *BadBurnError:
		return "bad_burn"
	case *TemporarilyUnavailableError:
		return "temporarily_unavailable"
	case *AllowanceChangedError:
		return "allowance_changed"
	case *InsufficientAllowanceError:
		return "insufficient_allowance"
	case *GenericError:
		return "generic"
	default:
		return "internal"
	}
}
