package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/kudipay/kudi_pay/internal/apperr"
	"github.com/kudipay/kudi_pay/internal/auth"
	"github.com/kudipay/kudi_pay/internal/kyc"
	"github.com/kudipay/kudi_pay/internal/ledger"
)

const minPasswordLength = 8

// Service manages the user lifecycle: registration (with its wallet) and login.
type Service struct {
	store    ledger.Store
	verifier kyc.Verifier
	tokens   *auth.TokenIssuer
	logger   *slog.Logger
}

// NewService builds a user service.
func NewService(store ledger.Store, verifier kyc.Verifier, tokens *auth.TokenIssuer, logger *slog.Logger) *Service {
	return &Service{store: store, verifier: verifier, tokens: tokens, logger: logger}
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Password    string
	DateOfBirth string
	BVN         string
}

// RegisterResult is the created user plus its wallet id.
type RegisterResult struct {
	User     ledger.User
	WalletID string
}

// Register verifies eligibility, hashes the password and creates the user and
// its wallet in one atomic unit. Uniqueness races on email/phone/BVN surface
// as Conflict rather than a crash; an unreachable eligibility provider is
// treated as eligible (fail-open).
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := validateRegistration(in); err != nil {
		return RegisterResult{}, err
	}

	eligible, err := s.verifier.VerifyEligibility(ctx, in.Email)
	if err != nil {
		s.logger.Warn("eligibility check unavailable, proceeding", "email", in.Email, "error", err)
		eligible = true
	}
	if !eligible {
		return RegisterResult{}, apperr.E(apperr.Conflict, "user is not eligible for onboarding")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResult{}, apperr.Wrap(apperr.Internal, "registration failed", err)
	}

	var result RegisterResult
	err = s.store.RunAtomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		created, err := tx.CreateUser(ctx, ledger.User{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			Phone:        in.Phone,
			BVN:          in.BVN,
			DateOfBirth:  in.DateOfBirth,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}

		wallet, err := tx.CreateWallet(ctx, ledger.Wallet{OwnerID: created.ID, Balance: decimal.Zero})
		if err != nil {
			return err
		}

		result = RegisterResult{User: created, WalletID: wallet.ID}
		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrUniqueViolation) {
			return RegisterResult{}, apperr.Wrap(apperr.Conflict, "email, phone or bvn already registered", err)
		}
		var domainErr *apperr.Error
		if errors.As(err, &domainErr) {
			return RegisterResult{}, err
		}
		s.logger.Error("registration failed", "email", in.Email, "error", err)
		return RegisterResult{}, apperr.Wrap(apperr.Internal, "registration failed", err)
	}

	s.logger.Info("user registered", "user_id", result.User.ID, "wallet_id", result.WalletID)
	return result, nil
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (ledger.User, string, error) {
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return ledger.User{}, "", apperr.Wrap(apperr.Internal, "login failed", err)
	}
	if u == nil {
		return ledger.User{}, "", apperr.E(apperr.NotFound, "user not found")
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return ledger.User{}, "", apperr.E(apperr.Unauthorized, "invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return ledger.User{}, "", apperr.Wrap(apperr.Internal, "login failed", err)
	}
	return *u, token, nil
}

// validateRegistration returns plain errors; the handler maps them to 400.
func validateRegistration(in RegisterInput) error {
	switch {
	case in.FirstName == "":
		return errors.New("firstName is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return errors.New("a valid email is required")
	case len(in.Password) < minPasswordLength:
		return errors.New("password must be at least 8 characters")
	case in.BVN == "":
		return errors.New("bvn is required")
	case in.DateOfBirth == "":
		return errors.New("dob is required")
	default:
		return nil
	}
}
