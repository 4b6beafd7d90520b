package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/inkforge-labs/inkforge/pkg/store/memstore"
)

type fixture struct {
	ledger *Ledger
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Unix(1_700_000_000, 0)}
	operators := func(caller string) bool { return caller == "operator" }
	l, err := New(memstore.New(), func() time.Time { return f.now }, operators, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.ledger = l
	return f
}

func (f *fixture) createToken(t *testing.T, supply, fee int64) {
	t.Helper()
	feeDec := decimal.NewFromInt(fee)
	err := f.ledger.CreateToken("operator", CreateTokenArgs{
		TokenName:     "Inkforge Token",
		TokenSymbol:   "INK",
		InitialSupply: decimal.NewFromInt(supply),
		TransferFee:   &feeDec,
	})
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, owner string) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.BalanceOf(AccountOf(owner, nil))
	if err != nil {
		t.Fatalf("BalanceOf %s: %v", owner, err)
	}
	return b
}

func (f *fixture) supply(t *testing.T) decimal.Decimal {
	t.Helper()
	s, err := f.ledger.TotalSupply()
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	return s
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCreateTokenOnce(t *testing.T) {
	f := newFixture(t)

	if created, _ := f.ledger.TokenCreated(); created {
		t.Error("Expected no token before creation")
	}
	err := f.ledger.CreateToken("mallory", CreateTokenArgs{InitialSupply: amount(1)})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}

	f.createToken(t, 1_000_000, 100)

	if created, _ := f.ledger.TokenCreated(); !created {
		t.Error("Expected token created")
	}
	err = f.ledger.CreateToken("operator", CreateTokenArgs{InitialSupply: amount(1)})
	if !errors.Is(err, ErrTokenExists) {
		t.Errorf("Expected ErrTokenExists, got %v", err)
	}

	name, _ := f.ledger.Name()
	symbol, _ := f.ledger.Symbol()
	if name != "Inkforge Token" || symbol != "INK" {
		t.Errorf("Unexpected name/symbol: %s/%s", name, symbol)
	}
	decimals, _ := f.ledger.Decimals()
	if decimals != DefaultDecimals {
		t.Errorf("Expected default decimals, got %d", decimals)
	}
	fee, _ := f.ledger.Fee()
	if !fee.Equal(amount(100)) {
		t.Errorf("Expected fee 100, got %s", fee)
	}
	minter, _ := f.ledger.MintingAccount()
	if minter == nil || minter.Owner != "operator" || len(minter.Subaccount) == 0 {
		t.Errorf("Expected dedicated minting account, got %+v", minter)
	}
}

func TestLedgerScenario(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	if got := f.supply(t); !got.Equal(amount(1_000_000)) {
		t.Errorf("Expected supply 1000000, got %s", got)
	}
	if got := f.balance(t, "operator"); !got.Equal(amount(1_000_000)) {
		t.Errorf("Expected minter balance 1000000, got %s", got)
	}

	idx, err := f.ledger.Transfer("operator", TransferArgs{
		To:     AccountOf("b", nil),
		Amount: amount(500),
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if idx != 1 {
		t.Errorf("Expected block 1, got %d", idx)
	}

	if got := f.balance(t, "b"); !got.Equal(amount(500)) {
		t.Errorf("Expected b balance 500, got %s", got)
	}
	if got := f.balance(t, "operator"); !got.Equal(amount(999_400)) {
		t.Errorf("Expected minter balance 999400, got %s", got)
	}
	if got := f.supply(t); !got.Equal(amount(999_900)) {
		t.Errorf("Expected supply 999900, got %s", got)
	}
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	_, err := f.ledger.Transfer("a", TransferArgs{To: AccountOf("b", nil), Amount: amount(-1)})
	var generic *GenericError
	if !errors.As(err, &generic) || generic.ErrorCode != InvalidAmountErrorCode {
		t.Errorf("Expected negative-amount GenericError, got %v", err)
	}

	_, err = f.ledger.Transfer("a", TransferArgs{To: AccountOf("a", nil), Amount: amount(1)})
	if !errors.As(err, &generic) || generic.ErrorCode != SelfTransferErrorCode {
		t.Errorf("Expected self-transfer GenericError, got %v", err)
	}

	memo := make([]byte, MaxMemoSize+1)
	_, err = f.ledger.Transfer("a", TransferArgs{To: AccountOf("b", nil), Amount: amount(1), Memo: memo})
	if !errors.As(err, &generic) || generic.ErrorCode != MemoTooLongErrorCode {
		t.Errorf("Expected memo-too-long GenericError, got %v", err)
	}

	wrongFee := amount(7)
	_, err = f.ledger.Transfer("operator", TransferArgs{To: AccountOf("b", nil), Amount: amount(1), Fee: &wrongFee})
	var badFee *BadFeeError
	if !errors.As(err, &badFee) || !badFee.ExpectedFee.Equal(amount(100)) {
		t.Errorf("Expected BadFeeError with fee 100, got %v", err)
	}
}

func TestCreatedAtTimeWindow(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	now := f.now.UnixNano()

	boundary := now - (24*time.Hour + 60*time.Second).Nanoseconds()
	if _, err := f.ledger.Transfer("operator", TransferArgs{
		To:            AccountOf("b", nil),
		Amount:        amount(1),
		CreatedAtTime: &boundary,
	}); err != nil {
		t.Errorf("Expected exact window boundary accepted, got %v", err)
	}

	tooOld := boundary - 1
	_, err := f.ledger.Transfer("operator", TransferArgs{
		To:            AccountOf("b", nil),
		Amount:        amount(2),
		CreatedAtTime: &tooOld,
	})
	var oldErr *TooOldError
	if !errors.As(err, &oldErr) {
		t.Errorf("Expected TooOldError, got %v", err)
	}

	future := now + (61 * time.Second).Nanoseconds()
	_, err = f.ledger.Transfer("operator", TransferArgs{
		To:            AccountOf("b", nil),
		Amount:        amount(3),
		CreatedAtTime: &future,
	})
	var futureErr *CreatedInFutureError
	if !errors.As(err, &futureErr) {
		t.Errorf("Expected CreatedInFutureError, got %v", err)
	}
	if futureErr != nil && futureErr.LedgerTime != now {
		t.Errorf("Expected ledger time %d, got %d", now, futureErr.LedgerTime)
	}

	withinDrift := now + (59 * time.Second).Nanoseconds()
	if _, err := f.ledger.Transfer("operator", TransferArgs{
		To:            AccountOf("b", nil),
		Amount:        amount(4),
		CreatedAtTime: &withinDrift,
	}); err != nil {
		t.Errorf("Expected drift-future timestamp accepted, got %v", err)
	}
}

func TestDuplicateDetection(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	createdAt := f.now.UnixNano()
	args := TransferArgs{
		To:            AccountOf("b", nil),
		Amount:        amount(500),
		Memo:          []byte("retry"),
		CreatedAtTime: &createdAt,
	}
	idx, err := f.ledger.Transfer("operator", args)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	_, err = f.ledger.Transfer("operator", args)
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected DuplicateError, got %v", err)
	}
	if dup.DuplicateOf != idx {
		t.Errorf("Expected duplicate of block %d, got %d", idx, dup.DuplicateOf)
	}

	// A different memo is a different request.
	args.Memo = []byte("fresh")
	if _, err := f.ledger.Transfer("operator", args); err != nil {
		t.Errorf("Expected distinct request accepted, got %v", err)
	}

	// Without created_at_time the scan never runs: the same request twice
	// simply applies twice.
	plain := TransferArgs{To: AccountOf("b", nil), Amount: amount(10)}
	if _, err := f.ledger.Transfer("operator", plain); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := f.ledger.Transfer("operator", plain); err != nil {
		t.Errorf("Expected repeat without created_at_time accepted, got %v", err)
	}
}

func TestFundsBoundary(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(500)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	// a holds 500; amount+fee exactly equal to the balance succeeds.
	if _, err := f.ledger.Transfer("a", TransferArgs{To: AccountOf("b", nil), Amount: amount(400)}); err != nil {
		t.Fatalf("Expected exact-balance transfer accepted, got %v", err)
	}
	if got := f.balance(t, "a"); !got.IsZero() {
		t.Errorf("Expected zero balance, got %s", got)
	}

	// One unit over fails and changes nothing.
	supplyBefore := f.supply(t)
	_, err := f.ledger.Transfer("b", TransferArgs{To: AccountOf("c", nil), Amount: amount(301)})
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Balance.Equal(amount(400)) {
		t.Errorf("Expected reported balance 400, got %s", insufficient.Balance)
	}
	if got := f.balance(t, "b"); !got.Equal(amount(400)) {
		t.Errorf("Expected balance unchanged, got %s", got)
	}
	if got := f.supply(t); !got.Equal(supplyBefore) {
		t.Errorf("Expected supply unchanged, got %s", got)
	}
}

func TestBurn(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	minter, err := f.ledger.MintingAccount()
	if err != nil {
		t.Fatalf("MintingAccount: %v", err)
	}
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(1000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	// Burn below the fee floor.
	_, err = f.ledger.Transfer("a", TransferArgs{To: *minter, Amount: amount(99)})
	var badBurn *BadBurnError
	if !errors.As(err, &badBurn) || !badBurn.MinBurnAmount.Equal(amount(100)) {
		t.Fatalf("Expected BadBurnError with minimum 100, got %v", err)
	}

	supplyBefore := f.supply(t)
	idx, err := f.ledger.Transfer("a", TransferArgs{To: *minter, Amount: amount(300)})
	if err != nil {
		t.Fatalf("Burn transfer: %v", err)
	}
	tx, ok, err := f.ledger.GetBlock(idx)
	if err != nil || !ok {
		t.Fatalf("GetBlock: ok=%v err=%v", ok, err)
	}
	if tx.Burn == nil {
		t.Fatalf("Expected burn entry, got %s", tx.Kind())
	}

	// A burn debits only the amount; the fee requirement is a floor, not a
	// charge.
	if got := f.balance(t, "a"); !got.Equal(amount(700)) {
		t.Errorf("Expected balance 700 after burn, got %s", got)
	}
	if got := f.supply(t); !got.Equal(supplyBefore.Sub(amount(300))) {
		t.Errorf("Expected supply reduced by 300, got %s", got)
	}
}

func TestMintFromMintingAccount(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	minter, _ := f.ledger.MintingAccount()
	supplyBefore := f.supply(t)

	// A transfer sourced from the minting subaccount creates supply with no
	// balance precondition.
	idx, err := f.ledger.Transfer(minter.Owner, TransferArgs{
		FromSubaccount: minter.Subaccount,
		To:             AccountOf("a", nil),
		Amount:         amount(250),
	})
	if err != nil {
		t.Fatalf("Mint transfer: %v", err)
	}
	tx, ok, _ := f.ledger.GetBlock(idx)
	if !ok || tx.Mint == nil {
		t.Fatalf("Expected mint entry, got %+v", tx)
	}
	if got := f.balance(t, "a"); !got.Equal(amount(250)) {
		t.Errorf("Expected minted balance 250, got %s", got)
	}
	if got := f.supply(t); !got.Equal(supplyBefore.Add(amount(250))) {
		t.Errorf("Expected supply grown by 250, got %s", got)
	}
	// The creator's spendable balance is untouched by a mint.
	if got := f.balance(t, "operator"); !got.Equal(amount(1_000_000)) {
		t.Errorf("Expected creator balance unchanged, got %s", got)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("owner", nil), Amount: amount(10_000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if _, err := f.ledger.Approve("owner", ApproveArgs{
		Spender: AccountOf("spender", nil),
		Amount:  amount(5000),
	}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	// The approval charges its fee.
	if got := f.balance(t, "owner"); !got.Equal(amount(9900)) {
		t.Errorf("Expected owner balance 9900 after approval fee, got %s", got)
	}

	allowance, err := f.ledger.AllowanceOf(AccountOf("owner", nil), AccountOf("spender", nil))
	if err != nil {
		t.Fatalf("AllowanceOf: %v", err)
	}
	if !allowance.Allowance.Equal(amount(5000)) {
		t.Errorf("Expected allowance 5000, got %s", allowance.Allowance)
	}

	// Delegated transfer nets amount+fee off the allowance.
	if _, err := f.ledger.TransferFrom("spender", TransferFromArgs{
		From:   AccountOf("owner", nil),
		To:     AccountOf("dest", nil),
		Amount: amount(1000),
	}); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if got := f.balance(t, "dest"); !got.Equal(amount(1000)) {
		t.Errorf("Expected dest balance 1000, got %s", got)
	}
	if got := f.balance(t, "owner"); !got.Equal(amount(8800)) {
		t.Errorf("Expected owner balance 8800, got %s", got)
	}
	allowance, _ = f.ledger.AllowanceOf(AccountOf("owner", nil), AccountOf("spender", nil))
	if !allowance.Allowance.Equal(amount(3900)) {
		t.Errorf("Expected allowance 3900, got %s", allowance.Allowance)
	}

	// Exceeding the remaining allowance is rejected before any state change.
	_, err = f.ledger.TransferFrom("spender", TransferFromArgs{
		From:   AccountOf("owner", nil),
		To:     AccountOf("dest", nil),
		Amount: amount(3900),
	})
	var insufficientAllowance *InsufficientAllowanceError
	if !errors.As(err, &insufficientAllowance) {
		t.Fatalf("Expected InsufficientAllowanceError, got %v", err)
	}
	if !insufficientAllowance.Allowance.Equal(amount(3900)) {
		t.Errorf("Expected reported allowance 3900, got %s", insufficientAllowance.Allowance)
	}
}

func TestApproveExpectedAllowance(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("owner", nil), Amount: amount(10_000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	expected := amount(0)
	if _, err := f.ledger.Approve("owner", ApproveArgs{
		Spender:           AccountOf("spender", nil),
		Amount:            amount(500),
		ExpectedAllowance: &expected,
	}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	stale := amount(0)
	_, err := f.ledger.Approve("owner", ApproveArgs{
		Spender:           AccountOf("spender", nil),
		Amount:            amount(900),
		ExpectedAllowance: &stale,
	})
	var changed *AllowanceChangedError
	if !errors.As(err, &changed) {
		t.Fatalf("Expected AllowanceChangedError, got %v", err)
	}
	if !changed.CurrentAllowance.Equal(amount(500)) {
		t.Errorf("Expected current allowance 500, got %s", changed.CurrentAllowance)
	}
}

func TestAllowanceExpiry(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("owner", nil), Amount: amount(10_000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	expiry := f.now.Add(time.Hour).UnixNano()
	if _, err := f.ledger.Approve("owner", ApproveArgs{
		Spender:   AccountOf("spender", nil),
		Amount:    amount(5000),
		ExpiresAt: &expiry,
	}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	allowance, _ := f.ledger.AllowanceOf(AccountOf("owner", nil), AccountOf("spender", nil))
	if !allowance.Allowance.Equal(amount(5000)) {
		t.Fatalf("Expected live allowance 5000, got %s", allowance.Allowance)
	}

	f.now = f.now.Add(2 * time.Hour)
	allowance, _ = f.ledger.AllowanceOf(AccountOf("owner", nil), AccountOf("spender", nil))
	if !allowance.Allowance.IsZero() {
		t.Errorf("Expected expired allowance zero, got %s", allowance.Allowance)
	}

	// A later log entry past the expiry also kills it, independent of now.
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("x", nil), Amount: amount(1)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	allowance, _ = f.ledger.AllowanceOf(AccountOf("owner", nil), AccountOf("spender", nil))
	if !allowance.Allowance.IsZero() || allowance.ExpiresAt != nil {
		t.Errorf("Expected allowance wiped by later entry, got %+v", allowance)
	}
}

func TestTransferFromSelfDegeneratesToTransfer(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(1000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	// No approval exists, but moving one's own funds needs none.
	idx, err := f.ledger.TransferFrom("a", TransferFromArgs{
		From:   AccountOf("a", nil),
		To:     AccountOf("b", nil),
		Amount: amount(100),
	})
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	tx, ok, _ := f.ledger.GetBlock(idx)
	if !ok || tx.Transfer == nil {
		t.Fatalf("Expected plain transfer entry, got %+v", tx)
	}
	if tx.Transfer.Spender != nil {
		t.Error("Expected no spender on a self transfer-from")
	}
}

func TestStake(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(1000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if _, err := f.ledger.Stake("a", nil, amount(400)); err != nil {
		t.Fatalf("Stake: %v", err)
	}
	staked, err := f.ledger.StakeOf("a")
	if err != nil {
		t.Fatalf("StakeOf: %v", err)
	}
	if !staked.Equal(amount(400)) {
		t.Errorf("Expected stake 400, got %s", staked)
	}
	if got := f.balance(t, "a"); !got.Equal(amount(500)) {
		t.Errorf("Expected balance 500 after stake and fee, got %s", got)
	}
	vault, err := f.ledger.BalanceOf(StakeVault())
	if err != nil {
		t.Fatalf("BalanceOf vault: %v", err)
	}
	if !vault.Equal(amount(400)) {
		t.Errorf("Expected vault balance 400, got %s", vault)
	}

	// Stakes accumulate.
	if _, err := f.ledger.Stake("a", nil, amount(100)); err != nil {
		t.Fatalf("Stake: %v", err)
	}
	staked, _ = f.ledger.StakeOf("a")
	if !staked.Equal(amount(500)) {
		t.Errorf("Expected stake 500, got %s", staked)
	}
}

func TestRebuildBalances(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	minter, _ := f.ledger.MintingAccount()
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(1000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := f.ledger.Stake("a", nil, amount(300)); err != nil {
		t.Fatalf("Stake: %v", err)
	}
	if _, err := f.ledger.Approve("a", ApproveArgs{Spender: AccountOf("s", nil), Amount: amount(50)}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.ledger.Transfer("a", TransferArgs{To: *minter, Amount: amount(200)}); err != nil {
		t.Fatalf("Burn transfer: %v", err)
	}

	balancesBefore := map[string]decimal.Decimal{
		"operator":      f.balance(t, "operator"),
		"a":             f.balance(t, "a"),
		StakeVaultOwner: f.balance(t, StakeVaultOwner),
	}
	stakeBefore, _ := f.ledger.StakeOf("a")

	if err := f.ledger.RebuildBalances(); err != nil {
		t.Fatalf("RebuildBalances: %v", err)
	}

	for owner, want := range balancesBefore {
		if got := f.balance(t, owner); !got.Equal(want) {
			t.Errorf("Expected %s balance %s after rebuild, got %s", owner, want, got)
		}
	}
	stakeAfter, _ := f.ledger.StakeOf("a")
	if !stakeAfter.Equal(stakeBefore) {
		t.Errorf("Expected stake %s after rebuild, got %s", stakeBefore, stakeAfter)
	}
}

func TestDeleteToken(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(1000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if err := f.ledger.DeleteToken("mallory"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
	if err := f.ledger.DeleteToken("operator"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}

	if created, _ := f.ledger.TokenCreated(); created {
		t.Error("Expected token gone")
	}
	if got := f.balance(t, "a"); !got.IsZero() {
		t.Errorf("Expected balances wiped, got %s", got)
	}
	if got := f.supply(t); !got.IsZero() {
		t.Errorf("Expected empty log, got supply %s", got)
	}
	if err := f.ledger.DeleteToken("operator"); !errors.Is(err, ErrTokenNotCreated) {
		t.Errorf("Expected ErrTokenNotCreated, got %v", err)
	}

	// The store is reusable after a wipe.
	f.createToken(t, 42, 1)
	if got := f.supply(t); !got.Equal(amount(42)) {
		t.Errorf("Expected fresh supply 42, got %s", got)
	}
}

func TestConservation(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)
	minter, _ := f.ledger.MintingAccount()

	if _, err := f.ledger.Transfer("operator", TransferArgs{To: AccountOf("a", nil), Amount: amount(5000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := f.ledger.Transfer("a", TransferArgs{To: AccountOf("b", nil), Amount: amount(1000)}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := f.ledger.Approve("a", ApproveArgs{Spender: AccountOf("s", nil), Amount: amount(100)}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.ledger.Transfer("b", TransferArgs{To: *minter, Amount: amount(400)}); err != nil {
		t.Fatalf("Burn transfer: %v", err)
	}

	total := decimal.Zero
	for _, owner := range []string{"operator", "a", "b", "s"} {
		total = total.Add(f.balance(t, owner))
	}
	if got := f.supply(t); !got.Equal(total) {
		t.Errorf("Expected supply %s to equal summed balances %s", got, total)
	}
}

func TestAsApproveErrorPanicsOnUnreachableVariants(t *testing.T) {
	badBurn := &BadBurnError{MinBurnAmount: amount(100)}
	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("Expected panic mapping %T onto the approval surface", badBurn)
			}
		}()
		_ = asApproveError(badBurn)
	}()

	if got := asApproveError(&TooOldError{}); got == nil {
		t.Error("Expected representable errors passed through")
	}
	if got := asApproveError(&InsufficientFundsError{Balance: amount(1)}); got == nil {
		t.Error("Expected insufficient funds passed through")
	}
}

func TestApproveBelowFeeRejectedBeforeRecording(t *testing.T) {
	f := newFixture(t)
	f.createToken(t, 1_000_000, 100)

	var insufficient *InsufficientFundsError
	_, err := f.ledger.Approve("poor", ApproveArgs{
		Spender: AccountOf("spender", nil),
		Amount:  amount(5000),
	})
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientFundsError, got %v", err)
	}
	if !insufficient.Balance.Equal(amount(0)) {
		t.Errorf("Expected balance 0 in rejection, got %s", insufficient.Balance)
	}

	// Only the genesis mint is in the log; the rejected approval left no
	// entry behind.
	if _, ok, err := f.ledger.GetBlock(1); err != nil || ok {
		t.Errorf("Expected no block after the rejection, ok=%v err=%v", ok, err)
	}
	if got := f.balance(t, "poor"); !got.Equal(amount(0)) {
		t.Errorf("Expected balance untouched, got %s", got)
	}

	// The log still replays cleanly.
	if err := f.ledger.RebuildBalances(); err != nil {
		t.Fatalf("RebuildBalances: %v", err)
	}
	if got := f.balance(t, "operator"); !got.Equal(amount(1_000_000)) {
		t.Errorf("Expected operator balance 1000000 after rebuild, got %s", got)
	}
}
