package ledger

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// StakeVaultOwner is the reserved owner identity of the stake vault account.
// Transfers to any account with this owner lock tokens and credit the
// sender's stake.
const StakeVaultOwner = "stake-vault"

// MintingSubaccount marks the token creator's minting account. The genesis
// supply lands on the creator's default account, which spends like any other;
// only transfers sourced from this subaccount create new supply.
var MintingSubaccount = []byte("minting")

// Account addresses a ledger balance: an owner identity plus an optional
// sub-identifier so one owner can hold multiple balances.
type Account struct {
	Owner      string `json:"owner"`
	Subaccount []byte `json:"subaccount,omitempty"`
}

// AccountOf builds an account for the given owner and optional subaccount.
func AccountOf(owner string, subaccount []byte) Account {
	return Account{Owner: owner, Subaccount: subaccount}
}

// StakeVault is the reserved account tokens are staked into.
func StakeVault() Account {
	return Account{Owner: StakeVaultOwner}
}

// Equal reports whether two accounts address the same balance.
func (a Account) Equal(b Account) bool {
	return a.Owner == b.Owner && bytes.Equal(a.Subaccount, b.Subaccount)
}

func (a Account) String() string {
	if len(a.Subaccount) == 0 {
		return a.Owner
	}
	return fmt.Sprintf("%s.%s", a.Owner, hex.EncodeToString(a.Subaccount))
}

// key is the balance-map key for the account. The owner is length-prefixed
// so (owner, subaccount) pairs can never collide.
func (a Account) key() []byte {
	key := make([]byte, 0, 2+len(a.Owner)+len(a.Subaccount))
	key = append(key, byte(len(a.Owner)>>8), byte(len(a.Owner)))
	key = append(key, a.Owner...)
	return append(key, a.Subaccount...)
}

func accountsEqual(a, b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
