// Package service orchestrates account onboarding and profile reads.
package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/inkforge-labs/inkforge/pkg/app/errors"
	"github.com/inkforge-labs/inkforge/pkg/ledger"
	"github.com/inkforge-labs/inkforge/pkg/repo"
	"github.com/inkforge-labs/inkforge/pkg/user"
	"github.com/inkforge-labs/inkforge/pkg/userstore"
)

// UserService orchestrates account onboarding and profile reads.
type UserService struct {
	users    *userstore.Store
	ledger   *ledger.Ledger
	validate *validator.Validate
	// welcomeReward is minted to every newly onboarded account. Zero
	// disables the reward.
	welcomeReward decimal.Decimal
	logger        *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(users *userstore.Store, ldg *ledger.Ledger, welcomeReward decimal.Decimal, logger *zap.Logger) *UserService {
	return &UserService{
		users:         users,
		ledger:        ldg,
		validate:      validator.New(),
		welcomeReward: welcomeReward,
		logger:        logger,
	}
}

// Onboard registers the caller and mints the welcome reward to them. The
// mint is an external ledger call: a failure leaves the account registered
// but unrewarded, and the user record is re-read after the call before it
// is marked rewarded.
func (s *UserService) Onboard(identity string, req user.OnboardRequest) (*user.Profile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequestError(err, "Invalid onboarding request")
	}

	_, err := s.users.Insert(identity, user.New(identity, req.PenName, req.Bio))
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, apperrors.ConflictError(err, "Account already onboarded")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("failed to onboard account: %w", err))
	}

	if s.welcomeReward.IsPositive() {
		if err := s.mintWelcomeReward(identity); err != nil {
			// Reward failures are reported, not fatal: the account
			// stays onboarded and unrewarded.
			s.logger.Warn("welcome reward failed",
				zap.String("identity", identity), zap.Error(err))
		}
	}

	u, ok, err := s.users.Get(identity)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, apperrors.ResourceNotFoundError(nil, "Account not found")
	}
	return profileOf(u), nil
}

// GetProfile returns the account's outward profile.
func (s *UserService) GetProfile(identity string) (*user.Profile, error) {
	u, ok, err := s.users.Get(identity)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if !ok {
		return nil, apperrors.ResourceNotFoundError(nil, "Account not found")
	}
	return profileOf(u), nil
}

// mintWelcomeReward transfers the reward from the minting account and marks
// the user rewarded. The user is re-read after the ledger call; unrelated
// operations may have run while it was in flight.
func (s *UserService) mintWelcomeReward(identity string) error {
	minter, err := s.ledger.MintingAccount()
	if err != nil {
		return err
	}
	if minter == nil {
		return errors.New("token not created")
	}
	if _, err := s.ledger.Transfer(minter.Owner, ledger.TransferArgs{
		FromSubaccount: minter.Subaccount,
		To:             ledger.AccountOf(identity, nil),
		Amount:         s.welcomeReward,
	}); err != nil {
		return err
	}

	u, ok, err := s.users.Get(identity)
	if err != nil {
		return err
	}
	if !ok {
		// Gone since the mint; nothing left to mark.
		return errors.New("account vanished during reward mint")
	}
	u.WelcomeRewarded = true
	if _, err := s.users.Update(identity, u); err != nil {
		return err
	}
	return nil
}

func profileOf(u *user.User) *user.Profile {
	return &user.Profile{
		Identity:        u.Identity,
		PenName:         u.PenName,
		Bio:             u.Bio,
		WelcomeRewarded: u.WelcomeRewarded,
		CreatedAt:       u.CreatedAt,
	}
}
