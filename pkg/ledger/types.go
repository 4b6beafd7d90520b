package ledger

import (
	"github.com/shopspring/decimal"
)

// Configuration is the token's singleton configuration record. At most one
// token exists per ledger; TokenCreated guards re-creation.
type Configuration struct {
	TokenName      string          `json:"token_name"`
	TokenSymbol    string          `json:"token_symbol"`
	TokenLogo      string          `json:"token_logo"`
	TransferFee    decimal.Decimal `json:"transfer_fee"`
	Decimals       uint8           `json:"decimals"`
	MintingAccount *Account        `json:"minting_account,omitempty"`
	TokenCreated   bool            `json:"token_created"`
}

// CreateTokenArgs parameterizes the one-time token creation. TransferFee
// and Decimals fall back to the ledger defaults when unset.
type CreateTokenArgs struct {
	TokenName     string           `json:"token_name"`
	TokenSymbol   string           `json:"token_symbol"`
	TokenLogo     string           `json:"token_logo"`
	InitialSupply decimal.Decimal  `json:"initial_supply"`
	TransferFee   *decimal.Decimal `json:"transfer_fee,omitempty"`
	Decimals      *uint8           `json:"decimals,omitempty"`
}

// Mint records created supply. Only the minting account originates mints.
type Mint struct {
	To            Account          `json:"to"`
	Amount        decimal.Decimal  `json:"amount"`
	Memo          []byte           `json:"memo,omitempty"`
	CreatedAtTime *int64           `json:"created_at_time,omitempty"`
}

// Burn records destroyed supply: a transfer addressed to the minting
// account.
type Burn struct {
	From          Account          `json:"from"`
	Spender       *Account         `json:"spender,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Memo          []byte           `json:"memo,omitempty"`
	CreatedAtTime *int64           `json:"created_at_time,omitempty"`
}

// Transfer records value movement between two regular accounts.
type Transfer struct {
	From          Account          `json:"from"`
	To            Account          `json:"to"`
	Spender       *Account         `json:"spender,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Fee           *decimal.Decimal `json:"fee,omitempty"`
	Memo          []byte           `json:"memo,omitempty"`
	CreatedAtTime *int64           `json:"created_at_time,omitempty"`
}

// Approve records a delegation allowing Spender to move up to Amount of
// From's tokens until ExpiresAt.
type Approve struct {
	From              Account          `json:"from"`
	Spender           Account          `json:"spender"`
	Amount            decimal.Decimal  `json:"amount"`
	ExpectedAllowance *decimal.Decimal `json:"expected_allowance,omitempty"`
	ExpiresAt         *int64           `json:"expires_at,omitempty"`
	Fee               *decimal.Decimal `json:"fee,omitempty"`
	Memo              []byte           `json:"memo,omitempty"`
	CreatedAtTime     *int64           `json:"created_at_time,omitempty"`
}

// Transaction is one immutable log entry. Exactly one of the four kind
// fields is set. Timestamp is the server time at append.
type Transaction struct {
	Mint      *Mint     `json:"mint,omitempty"`
	Burn      *Burn     `json:"burn,omitempty"`
	Transfer  *Transfer `json:"transfer,omitempty"`
	Approve   *Approve  `json:"approve,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Kind names the transaction's variant.
func (t *Transaction) Kind() string {
	switch {
	case t.Mint != nil:
		return "mint"
	case t.Burn != nil:
		return "burn"
	case t.Transfer != nil:
		return "transfer"
	case t.Approve != nil:
		return "approve"
	default:
		return "unknown"
	}
}

// TransferArgs is the caller-facing transfer request. From is derived from
// the caller identity plus FromSubaccount.
type TransferArgs struct {
	FromSubaccount []byte           `json:"from_subaccount,omitempty"`
	To             Account          `json:"to"`
	Amount         decimal.Decimal  `json:"amount"`
	Fee            *decimal.Decimal `json:"fee,omitempty"`
	Memo           []byte           `json:"memo,omitempty"`
	CreatedAtTime  *int64           `json:"created_at_time,omitempty"`
}

// ApproveArgs is the caller-facing approval request.
type ApproveArgs struct {
	FromSubaccount    []byte           `json:"from_subaccount,omitempty"`
	Spender           Account          `json:"spender"`
	Amount            decimal.Decimal  `json:"amount"`
	ExpectedAllowance *decimal.Decimal `json:"expected_allowance,omitempty"`
	ExpiresAt         *int64           `json:"expires_at,omitempty"`
	Fee               *decimal.Decimal `json:"fee,omitempty"`
	Memo              []byte           `json:"memo,omitempty"`
	CreatedAtTime     *int64           `json:"created_at_time,omitempty"`
}

// TransferFromArgs is the caller-facing delegated-transfer request. The
// caller acts as the spender unless it owns From, in which case the request
// degenerates to a plain transfer.
type TransferFromArgs struct {
	SpenderSubaccount []byte           `json:"spender_subaccount,omitempty"`
	From              Account          `json:"from"`
	To                Account          `json:"to"`
	Amount            decimal.Decimal  `json:"amount"`
	Fee               *decimal.Decimal `json:"fee,omitempty"`
	Memo              []byte           `json:"memo,omitempty"`
	CreatedAtTime     *int64           `json:"created_at_time,omitempty"`
}

// Allowance is the amount a spender may still move on an owner's behalf.
type Allowance struct {
	Allowance decimal.Decimal `json:"allowance"`
	ExpiresAt *int64          `json:"expires_at,omitempty"`
}

// SupportedStandard names a token standard the ledger implements.
type SupportedStandard struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MetadataValue is one name/value metadata pair.
type MetadataValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func decimalsEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func int64sEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// txInfo is the normalized, not-yet-classified transaction request fed to
// the validation pipeline.
type txInfo struct {
	from              Account
	to                *Account
	amount            decimal.Decimal
	spender           *Account
	memo              []byte
	fee               *decimal.Decimal
	createdAtTime     *int64
	expectedAllowance *decimal.Decimal
	expiresAt         *int64
	isApproval        bool
}
