// Package ledger implements an ICRC-style fungible-token ledger: an
// append-only transaction log with derived balance and stake caches, a
// mint/burn/transfer/approve validation pipeline, and log-scan allowance and
// supply queries.
package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/inkforge-labs/inkforge/internal/metrics"
	"github.com/inkforge-labs/inkforge/pkg/store"
)

// Storage regions owned by the ledger.
const (
	regionConfig   store.Region = "ledger/config"
	regionLog      store.Region = "ledger/log"
	regionBalances store.Region = "ledger/balances"
	regionStakes   store.Region = "ledger/stakes"
)

const (
	// MaxMemoSize bounds transaction memos, in bytes.
	MaxMemoSize = 32

	// DefaultDecimals is the display precision used unless token creation
	// overrides it.
	DefaultDecimals uint8 = 8

	transactionWindow = 24 * time.Hour
	permittedDrift    = 60 * time.Second
)

// DefaultTransferFee is charged on transfers and approvals unless token
// creation overrides it.
var DefaultTransferFee = decimal.NewFromInt(10_000)

// Standards the ledger's operation set conforms to.
var supportedStandards = []SupportedStandard{
	{Name: "ICRC-1", URL: "https://github.com/dfinity/ICRC-1/tree/main/standards/ICRC-1"},
	{Name: "ICRC-2", URL: "https://github.com/dfinity/ICRC-1/tree/main/standards/ICRC-2"},
}

// Token lifecycle errors.
var (
	ErrTokenExists     = errors.New("token already created")
	ErrTokenNotCreated = errors.New("token not created")
	ErrNotAuthorized   = errors.New("caller is not a recognized operator")
)

// Clock supplies the ledger's notion of now.
type Clock func() time.Time

// OperatorFunc reports whether the caller may perform privileged token
// operations. The policy is injected; the ledger does not define it.
type OperatorFunc func(caller string) bool

// Ledger is the token ledger engine. All operations serialize on one mutex:
// the design is single-writer, and queries must observe a consistent
// log/cache pair.
type Ledger struct {
	mu       sync.Mutex
	config   store.Cell
	log      store.Log
	balances store.Map
	stakes   store.Map

	clock      Clock
	isOperator OperatorFunc
	logger     *zap.Logger
}

// New binds a ledger to its storage regions.
func New(backend store.Backend, clock Clock, isOperator OperatorFunc, logger *zap.Logger) (*Ledger, error) {
	config, err := backend.Cell(regionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger config: %w", err)
	}
	log, err := backend.Log(regionLog)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger transaction log: %w", err)
	}
	balances, err := backend.Map(regionBalances)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger balances: %w", err)
	}
	stakes, err := backend.Map(regionStakes)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger stakes: %w", err)
	}
	return &Ledger{
		config:     config,
		log:        log,
		balances:   balances,
		stakes:     stakes,
		clock:      clock,
		isOperator: isOperator,
		logger:     logger,
	}, nil
}

// CreateToken establishes the token configuration and mints the initial
// supply to the caller. One-time and privileged.
func (l *Ledger) CreateToken(caller string, args CreateTokenArgs) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	if cfg.TokenCreated {
		return ErrTokenExists
	}
	if l.isOperator == nil || !l.isOperator(caller) {
		return ErrNotAuthorized
	}

	minting := Account{Owner: caller, Subaccount: MintingSubaccount}
	genesis := &Transaction{
		Mint: &Mint{
			To:     Account{Owner: caller},
			Amount: args.InitialSupply,
		},
		Timestamp: l.clock().UnixNano(),
	}
	if _, err := l.record(genesis); err != nil {
		return err
	}
	if err := l.applyToCaches(genesis); err != nil {
		return err
	}

	fee := DefaultTransferFee
	if args.TransferFee != nil {
		fee = *args.TransferFee
	}
	decimals := DefaultDecimals
	if args.Decimals != nil {
		decimals = *args.Decimals
	}
	cfg = Configuration{
		TokenName:      args.TokenName,
		TokenSymbol:    args.TokenSymbol,
		TokenLogo:      args.TokenLogo,
		TransferFee:    fee,
		Decimals:       decimals,
		MintingAccount: &minting,
		TokenCreated:   true,
	}
	if err := l.saveConfig(cfg); err != nil {
		return err
	}

	l.logger.Info("token created",
		zap.String("name", cfg.TokenName),
		zap.String("symbol", cfg.TokenSymbol),
		zap.String("minting_account", minting.String()),
		zap.String("initial_supply", args.InitialSupply.String()))
	return nil
}

// DeleteToken wipes the configuration, the transaction log and both caches.
// Privileged; the minting-account owner may always delete its own token.
func (l *Ledger) DeleteToken(caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.TokenCreated {
		return ErrTokenNotCreated
	}
	isMinter := cfg.MintingAccount != nil && cfg.MintingAccount.Owner == caller
	if !isMinter && (l.isOperator == nil || !l.isOperator(caller)) {
		return ErrNotAuthorized
	}

	if err := l.config.Clear(); err != nil {
		return err
	}
	if err := l.log.Reset(); err != nil {
		return err
	}
	if err := l.balances.Clear(); err != nil {
		return err
	}
	if err := l.stakes.Clear(); err != nil {
		return err
	}
	metrics.LedgerLogLength.Set(0)

	l.logger.Info("token deleted", zap.String("caller", caller))
	return nil
}

// TokenCreated reports whether the token configuration exists.
func (l *Ledger) TokenCreated() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, err := l.loadConfig()
	if err != nil {
		return false, err
	}
	return cfg.TokenCreated, nil
}

// Transfer moves tokens from the caller's account to another account.
func (l *Ledger) Transfer(caller string, args TransferArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyTransaction(txInfo{
		from:          AccountOf(caller, args.FromSubaccount),
		to:            &args.To,
		amount:        args.Amount,
		memo:          args.Memo,
		fee:           args.Fee,
		createdAtTime: args.CreatedAtTime,
	})
}

// Approve lets args.Spender move up to args.Amount of the caller's tokens.
func (l *Ledger) Approve(caller string, args ApproveArgs) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := validateMemo(args.Memo); err != nil {
		return 0, asApproveError(err)
	}
	approver := AccountOf(caller, args.FromSubaccount)
	if args.ExpectedAllowance != nil {
		current, err := l.allowance(approver, args.Spender, l.clock().UnixNano())
		if err != nil {
			return 0, err
		}
		if !current.Allowance.Equal(*args.ExpectedAllowance) {
			return 0, &AllowanceChangedError{CurrentAllowance: current.Allowance}
		}
	}
	spender := args.Spender
	idx, err := l.applyTransaction(txInfo{
		from:              approver,
		amount:            args.Amount,
		spender:           &spender,
		memo:              args.Memo,
		fee:               args.Fee,
		createdAtTime:     args.CreatedAtTime,
		expectedAllowance: args.ExpectedAllowance,
		expiresAt:         args.ExpiresAt,
		isApproval:        true,
	})
	if err != nil {
		return 0, asApproveError(err)
	}
	return idx, nil
}

// TransferFrom moves tokens from args.From on the strength of a prior
// approval to the caller. A caller moving its own funds degenerates to a
// plain transfer.
func (l *Ledger) TransferFrom(caller string, args TransferFromArgs) (uint64, error) {
	if caller == args.From.Owner {
		idx, err := l.Transfer(caller, TransferArgs{
			FromSubaccount: args.From.Subaccount,
			To:             args.To,
			Amount:         args.Amount,
			Fee:            args.Fee,
			Memo:           args.Memo,
			CreatedAtTime:  args.CreatedAtTime,
		})
		if err != nil {
			return 0, asTransferFromError(err)
		}
		return idx, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := validateMemo(args.Memo); err != nil {
		return 0, asTransferFromError(err)
	}
	spender := AccountOf(caller, args.SpenderSubaccount)
	current, err := l.allowance(args.From, spender, l.clock().UnixNano())
	if err != nil {
		return 0, err
	}
	cfg, err := l.loadConfig()
	if err != nil {
		return 0, err
	}
	if current.Allowance.LessThan(args.Amount.Add(cfg.TransferFee)) {
		return 0, &InsufficientAllowanceError{Allowance: current.Allowance}
	}
	idx, err := l.applyTransaction(txInfo{
		from:          args.From,
		to:            &args.To,
		amount:        args.Amount,
		spender:       &spender,
		memo:          args.Memo,
		fee:           args.Fee,
		createdAtTime: args.CreatedAtTime,
	})
	if err != nil {
		return 0, asTransferFromError(err)
	}
	return idx, nil
}

// Stake locks tokens by transferring them to the reserved stake vault.
func (l *Ledger) Stake(caller string, fromSubaccount []byte, amount decimal.Decimal) (uint64, error) {
	return l.Transfer(caller, TransferArgs{
		FromSubaccount: fromSubaccount,
		To:             StakeVault(),
		Amount:         amount,
	})
}

// BalanceOf reads the account's balance from the cache.
func (l *Ledger) BalanceOf(account Account) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readBalance(account)
}

// StakeOf reads the owner's locked stake from the stake cache.
func (l *Ledger) StakeOf(owner string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return readAmount(l.stakes, []byte(owner))
}

// TotalSupply derives the circulating supply from a full log scan: minted
// minus burnt minus every fee charged.
func (l *Ledger) TotalSupply() (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	supply := decimal.Zero
	err := l.scan(func(_ uint64, tx *Transaction) bool {
		switch {
		case tx.Mint != nil:
			supply = supply.Add(tx.Mint.Amount)
		case tx.Burn != nil:
			supply = supply.Sub(tx.Burn.Amount)
		case tx.Transfer != nil && tx.Transfer.Fee != nil:
			supply = supply.Sub(*tx.Transfer.Fee)
		case tx.Approve != nil && tx.Approve.Fee != nil:
			supply = supply.Sub(*tx.Approve.Fee)
		}
		return true
	})
	if err != nil {
		return decimal.Zero, err
	}
	return supply, nil
}

// AllowanceOf reports how much spender may currently move on owner's behalf.
func (l *Ledger) AllowanceOf(owner, spender Account) (Allowance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowance(owner, spender, l.clock().UnixNano())
}

// RebuildBalances clears the balance and stake caches and replays the full
// log through the same routine that maintains them incrementally. Disaster
// recovery; for any log produced through the pipeline the caches are
// unchanged by a rebuild.
func (l *Ledger) RebuildBalances() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.balances.Clear(); err != nil {
		return err
	}
	if err := l.stakes.Clear(); err != nil {
		return err
	}
	var applyErr error
	err := l.scan(func(_ uint64, tx *Transaction) bool {
		if err := l.applyToCaches(tx); err != nil {
			applyErr = err
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}

	length, err := l.log.Len()
	if err != nil {
		return err
	}
	l.logger.Info("rebuilt balance and stake caches", zap.Uint64("log_length", length))
	return nil
}

// GetBlock returns the transaction at the given block index.
func (l *Ledger) GetBlock(index uint64) (*Transaction, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, ok, err := l.log.Get(index)
	if err != nil || !ok {
		return nil, false, err
	}
	tx, err := decodeTransaction(raw)
	if err != nil {
		return nil, false, err
	}
	return tx, true, nil
}

// Name returns the token name.
func (l *Ledger) Name() (string, error) { return l.configString(func(c Configuration) string { return c.TokenName }) }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() (string, error) { return l.configString(func(c Configuration) string { return c.TokenSymbol }) }

// Decimals returns the display precision.
func (l *Ledger) Decimals() (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, err := l.loadConfig()
	if err != nil {
		return 0, err
	}
	return cfg.Decimals, nil
}

// Fee returns the configured transfer fee.
func (l *Ledger) Fee() (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, err := l.loadConfig()
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.TransferFee, nil
}

// MintingAccount returns the minting account, if the token exists.
func (l *Ledger) MintingAccount() (*Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, err := l.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.MintingAccount, nil
}

// Metadata returns the token's display metadata.
func (l *Ledger) Metadata() ([]MetadataValue, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, err := l.loadConfig()
	if err != nil {
		return nil, err
	}
	return []MetadataValue{
		{Name: "icrc1:name", Value: cfg.TokenName},
		{Name: "icrc1:symbol", Value: cfg.TokenSymbol},
		{Name: "icrc1:decimals", Value: fmt.Sprintf("%d", cfg.Decimals)},
		{Name: "icrc1:fee", Value: cfg.TransferFee.String()},
		{Name: "icrc1:logo", Value: cfg.TokenLogo},
	}, nil
}

// SupportedStandards lists the token standards the ledger implements.
func (l *Ledger) SupportedStandards() []SupportedStandard {
	out := make([]SupportedStandard, len(supportedStandards))
	copy(out, supportedStandards)
	return out
}

// applyTransaction runs the full validation pipeline and, only if every
// check passes, appends the entry and updates the caches. A rejection
// leaves the log and both caches untouched. Callers hold the mutex.
func (l *Ledger) applyTransaction(tx txInfo) (uint64, error) {
	idx, err := l.applyTx(tx)
	if err != nil {
		metrics.LedgerRejections.WithLabelValues(rejectionReason(err)).Inc()
		return 0, err
	}
	return idx, nil
}

func (l *Ledger) applyTx(tx txInfo) (uint64, error) {
	if tx.amount.IsNegative() {
		return 0, &GenericError{ErrorCode: InvalidAmountErrorCode, Message: "amount must not be negative"}
	}
	if tx.to != nil && tx.from.Equal(*tx.to) {
		return 0, &GenericError{ErrorCode: SelfTransferErrorCode, Message: "self transfers are not allowed"}
	}
	if err := validateMemo(tx.memo); err != nil {
		return 0, err
	}
	now := l.clock().UnixNano()
	if err := validateCreatedAtTime(tx.createdAtTime, now); err != nil {
		return 0, err
	}
	cfg, err := l.loadConfig()
	if err != nil {
		return 0, err
	}
	entry, err := l.classify(tx, cfg, now)
	if err != nil {
		return 0, err
	}
	idx, err := l.record(entry)
	if err != nil {
		return 0, err
	}
	if err := l.applyToCaches(entry); err != nil {
		return 0, err
	}
	l.logger.Debug("transaction applied",
		zap.Uint64("block", idx),
		zap.String("kind", entry.Kind()),
		zap.String("amount", tx.amount.String()))
	return idx, nil
}

// classify validates the request against the configuration and current
// balances and produces the log entry for it. Deduplication runs first,
// then the fee check, then the per-kind balance preconditions.
func (l *Ledger) classify(tx txInfo, cfg Configuration, now int64) (*Transaction, error) {
	if tx.createdAtTime != nil {
		dup, found, err := l.findDuplicate(&tx, cfg)
		if err != nil {
			return nil, err
		}
		if found {
			return nil, &DuplicateError{DuplicateOf: dup}
		}
	}
	if tx.fee != nil && !tx.fee.Equal(cfg.TransferFee) {
		return nil, &BadFeeError{ExpectedFee: cfg.TransferFee}
	}

	fee := cfg.TransferFee
	if tx.isApproval {
		// The fee is the only debit an approval makes; it must be covered
		// before the entry is recorded, or the log would hold an entry the
		// caches can never replay.
		if fee.IsPositive() {
			balance, err := l.readBalance(tx.from)
			if err != nil {
				return nil, err
			}
			if balance.LessThan(fee) {
				return nil, &InsufficientFundsError{Balance: balance}
			}
		}
		return &Transaction{
			Approve: &Approve{
				From:              tx.from,
				Spender:           *tx.spender,
				Amount:            tx.amount,
				ExpectedAllowance: tx.expectedAllowance,
				ExpiresAt:         tx.expiresAt,
				Fee:               &fee,
				Memo:              tx.memo,
				CreatedAtTime:     tx.createdAtTime,
			},
			Timestamp: now,
		}, nil
	}

	if minter := cfg.MintingAccount; minter != nil {
		if tx.from.Equal(*minter) {
			return &Transaction{
				Mint: &Mint{
					To:            *tx.to,
					Amount:        tx.amount,
					Memo:          tx.memo,
					CreatedAtTime: tx.createdAtTime,
				},
				Timestamp: now,
			}, nil
		}
		if tx.to != nil && tx.to.Equal(*minter) {
			if tx.amount.LessThan(fee) {
				return nil, &BadBurnError{MinBurnAmount: fee}
			}
			balance, err := l.readBalance(tx.from)
			if err != nil {
				return nil, err
			}
			if balance.LessThan(tx.amount.Add(fee)) {
				return nil, &InsufficientFundsError{Balance: balance}
			}
			return &Transaction{
				Burn: &Burn{
					From:          tx.from,
					Spender:       tx.spender,
					Amount:        tx.amount,
					Memo:          tx.memo,
					CreatedAtTime: tx.createdAtTime,
				},
				Timestamp: now,
			}, nil
		}
	}

	balance, err := l.readBalance(tx.from)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(tx.amount.Add(fee)) {
		return nil, &InsufficientFundsError{Balance: balance}
	}
	return &Transaction{
		Transfer: &Transfer{
			From:          tx.from,
			To:            *tx.to,
			Spender:       tx.spender,
			Amount:        tx.amount,
			Fee:           &fee,
			Memo:          tx.memo,
			CreatedAtTime: tx.createdAtTime,
		},
		Timestamp: now,
	}, nil
}

// findDuplicate scans the log for a prior transaction identical to the
// request. The sole idempotency mechanism for client retries.
func (l *Ledger) findDuplicate(tx *txInfo, cfg Configuration) (uint64, bool, error) {
	var (
		dup   uint64
		found bool
	)
	err := l.scan(func(idx uint64, stored *Transaction) bool {
		if matchesStored(tx, stored, cfg.MintingAccount) {
			dup, found = idx, true
			return false
		}
		return true
	})
	return dup, found, err
}

func matchesStored(tx *txInfo, stored *Transaction, minter *Account) bool {
	if tx.isApproval {
		a := stored.Approve
		return a != nil &&
			tx.from.Equal(a.From) &&
			accountsEqual(tx.spender, &a.Spender) &&
			tx.amount.Equal(a.Amount) &&
			decimalsEqual(tx.expectedAllowance, a.ExpectedAllowance) &&
			int64sEqual(tx.expiresAt, a.ExpiresAt) &&
			bytes.Equal(tx.memo, a.Memo) &&
			int64sEqual(tx.createdAtTime, a.CreatedAtTime)
	}
	if b := stored.Burn; b != nil {
		return minter != nil && tx.to != nil && tx.to.Equal(*minter) &&
			tx.from.Equal(b.From) &&
			tx.amount.Equal(b.Amount) &&
			accountsEqual(tx.spender, b.Spender) &&
			bytes.Equal(tx.memo, b.Memo) &&
			int64sEqual(tx.createdAtTime, b.CreatedAtTime)
	}
	if m := stored.Mint; m != nil {
		return minter != nil && tx.from.Equal(*minter) &&
			tx.to != nil && tx.to.Equal(m.To) &&
			tx.amount.Equal(m.Amount) &&
			bytes.Equal(tx.memo, m.Memo) &&
			int64sEqual(tx.createdAtTime, m.CreatedAtTime)
	}
	if t := stored.Transfer; t != nil {
		return tx.from.Equal(t.From) &&
			tx.to != nil && tx.to.Equal(t.To) &&
			tx.amount.Equal(t.Amount) &&
			accountsEqual(tx.spender, t.Spender) &&
			bytes.Equal(tx.memo, t.Memo) &&
			int64sEqual(tx.createdAtTime, t.CreatedAtTime)
	}
	return false
}

// allowance recomputes the spender's allowance by a full log scan: the most
// recent approval sets it, each delegated transfer nets amount+fee off it,
// and an expiry passed before a later entry (or before now) zeroes it.
func (l *Ledger) allowance(owner, spender Account, now int64) (Allowance, error) {
	allowed := decimal.Zero
	var expiresAt *int64
	err := l.scan(func(_ uint64, tx *Transaction) bool {
		if expiresAt != nil && *expiresAt < tx.Timestamp {
			allowed = decimal.Zero
			expiresAt = nil
		}
		if a := tx.Approve; a != nil && a.From.Equal(owner) && a.Spender.Equal(spender) {
			allowed = a.Amount
			expiresAt = a.ExpiresAt
		}
		if t := tx.Transfer; t != nil && t.From.Equal(owner) && t.Spender != nil && t.Spender.Equal(spender) {
			allowed = allowed.Sub(t.Amount)
			if t.Fee != nil {
				allowed = allowed.Sub(*t.Fee)
			}
		}
		return true
	})
	if err != nil {
		return Allowance{}, err
	}
	if expiresAt != nil && *expiresAt < now {
		allowed = decimal.Zero
		expiresAt = nil
	}
	return Allowance{Allowance: allowed, ExpiresAt: expiresAt}, nil
}

// record appends the entry to the log and returns its block index.
func (l *Ledger) record(tx *Transaction) (uint64, error) {
	raw, err := json.Marshal(tx)
	if err != nil {
		return 0, fmt.Errorf("failed to encode transaction: %w", err)
	}
	idx, err := l.log.Append(raw)
	if err != nil {
		return 0, err
	}
	metrics.LedgerTransactions.WithLabelValues(tx.Kind()).Inc()
	metrics.LedgerLogLength.Set(float64(idx + 1))
	return idx, nil
}

// applyToCaches folds one log entry into the balance cache and, for
// transfers into the stake vault, the stake cache. Both the incremental
// update path and the rebuild replay go through here.
func (l *Ledger) applyToCaches(tx *Transaction) error {
	switch {
	case tx.Mint != nil:
		return l.credit(tx.Mint.To, tx.Mint.Amount)
	case tx.Burn != nil:
		return l.debit(tx.Burn.From, tx.Burn.Amount)
	case tx.Transfer != nil:
		t := tx.Transfer
		debited := t.Amount
		if t.Fee != nil {
			debited = debited.Add(*t.Fee)
		}
		if err := l.debit(t.From, debited); err != nil {
			return err
		}
		if err := l.credit(t.To, t.Amount); err != nil {
			return err
		}
		if t.To.Owner == StakeVaultOwner {
			return creditAmount(l.stakes, []byte(t.From.Owner), t.Amount)
		}
		return nil
	case tx.Approve != nil:
		if tx.Approve.Fee != nil {
			return l.debit(tx.Approve.From, *tx.Approve.Fee)
		}
		return nil
	default:
		return fmt.Errorf("transaction %d has no kind", tx.Timestamp)
	}
}

func (l *Ledger) credit(account Account, amount decimal.Decimal) error {
	return creditAmount(l.balances, account.key(), amount)
}

// debit never lets a balance wrap below zero: an underflow here means the
// log and cache disagree and is surfaced as an error.
func (l *Ledger) debit(account Account, amount decimal.Decimal) error {
	balance, err := l.readBalance(account)
	if err != nil {
		return err
	}
	next := balance.Sub(amount)
	if next.IsNegative() {
		return fmt.Errorf("balance underflow for account %s", account)
	}
	return writeAmount(l.balances, account.key(), next)
}

func (l *Ledger) readBalance(account Account) (decimal.Decimal, error) {
	return readAmount(l.balances, account.key())
}

func (l *Ledger) scan(fn func(idx uint64, tx *Transaction) bool) error {
	var decodeErr error
	err := l.log.Iterate(func(idx uint64, raw []byte) bool {
		tx, err := decodeTransaction(raw)
		if err != nil {
			decodeErr = err
			return false
		}
		return fn(idx, tx)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (l *Ledger) loadConfig() (Configuration, error) {
	raw, ok, err := l.config.Get()
	if err != nil {
		return Configuration{}, err
	}
	if !ok {
		return Configuration{TransferFee: decimal.Zero}, nil
	}
	var cfg Configuration
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("failed to decode ledger config: %w", err)
	}
	return cfg, nil
}

func (l *Ledger) saveConfig(cfg Configuration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode ledger config: %w", err)
	}
	return l.config.Set(raw)
}

func (l *Ledger) configString(get func(Configuration) string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, err := l.loadConfig()
	if err != nil {
		return "", err
	}
	return get(cfg), nil
}

func decodeTransaction(raw []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

func readAmount(m store.Map, key []byte) (decimal.Decimal, error) {
	raw, ok, err := m.Get(key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode stored amount: %w", err)
	}
	return amount, nil
}

func writeAmount(m store.Map, key []byte, amount decimal.Decimal) error {
	return m.Set(key, []byte(amount.String()))
}

func creditAmount(m store.Map, key []byte, amount decimal.Decimal) error {
	current, err := readAmount(m, key)
	if err != nil {
		return err
	}
	return writeAmount(m, key, current.Add(amount))
}

func validateMemo(memo []byte) error {
	if len(memo) > MaxMemoSize {
		return &GenericError{ErrorCode: MemoTooLongErrorCode, Message: "memo too long"}
	}
	return nil
}

func validateCreatedAtTime(createdAtTime *int64, now int64) error {
	if createdAtTime == nil {
		return nil
	}
	t := *createdAtTime
	if t > now+permittedDrift.Nanoseconds() {
		return &CreatedInFutureError{LedgerTime: now}
	}
	if t < now && now-t > transactionWindow.Nanoseconds()+permittedDrift.Nanoseconds() {
		return &TooOldError{}
	}
	return nil
}
