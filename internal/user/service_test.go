package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kudipay/kudi_pay/internal/apperr"
	"github.com/kudipay/kudi_pay/internal/auth"
	"github.com/kudipay/kudi_pay/internal/kyc"
	"github.com/kudipay/kudi_pay/internal/ledger"
	"github.com/kudipay/kudi_pay/internal/logging"
)

// brokenVerifier simulates an unreachable eligibility provider.
type brokenVerifier struct{}

func (brokenVerifier) VerifyEligibility(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func newTestService(verifier kyc.Verifier) (*Service, *ledger.MemoryStore) {
	store := ledger.NewMemoryStore()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(store, verifier, tokens, logging.Discard()), store
}

func validInput() RegisterInput {
	return RegisterInput{
		FirstName:   "Ada",
		LastName:    "Okafor",
		Email:       "Ada@Example.com",
		Phone:       "08030000001",
		Password:    "correct-horse",
		DateOfBirth: "1993-04-12",
		BVN:         "22233344455",
	}
}

func TestRegisterCreatesUserAndWallet(t *testing.T) {
	svc, store := newTestService(kyc.Static{Eligible: true})

	res, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.ID == "" || res.WalletID == "" {
		t.Fatalf("expected user and wallet ids, got %+v", res)
	}
	if res.User.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", res.User.Email)
	}

	wallet, err := store.WalletByOwner(context.Background(), res.User.ID)
	if err != nil {
		t.Fatalf("wallet lookup: %v", err)
	}
	if !wallet.Balance.IsZero() {
		t.Errorf("new wallet balance = %s, want 0", wallet.Balance)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(kyc.Static{Eligible: true})

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing first name", func(in *RegisterInput) { in.FirstName = "" }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *RegisterInput) { in.Password = "short" }},
		{"missing bvn", func(in *RegisterInput) { in.BVN = "" }},
		{"missing dob", func(in *RegisterInput) { in.DateOfBirth = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.Register(context.Background(), in); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRegisterIneligibleUser(t *testing.T) {
	svc, _ := newTestService(kyc.Static{Eligible: false})

	_, err := svc.Register(context.Background(), validInput())
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("kind = %v, want Conflict (err: %v)", apperr.KindOf(err), err)
	}
}

func TestRegisterFailsOpenWhenVerifierDown(t *testing.T) {
	svc, _ := newTestService(brokenVerifier{})

	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("expected fail-open registration, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(kyc.Static{Eligible: true})

	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	in := validInput()
	in.Phone = "08030000002"
	in.BVN = "99988877766"
	_, err := svc.Register(context.Background(), in)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("kind = %v, want Conflict (err: %v)", apperr.KindOf(err), err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(kyc.Static{Eligible: true})
	registered, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	u, token, err := svc.Login(context.Background(), "ADA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != registered.User.ID {
		t.Errorf("user id = %s, want %s", u.ID, registered.User.ID)
	}
	if token == "" {
		t.Error("expected a token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(kyc.Static{Eligible: true})
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := svc.Login(context.Background(), "ada@example.com", "wrong-password")
	if apperr.KindOf(err) != apperr.Unauthorized {
		t.Fatalf("kind = %v, want Unauthorized (err: %v)", apperr.KindOf(err), err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(kyc.Static{Eligible: true})

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("kind = %v, want NotFound (err: %v)", apperr.KindOf(err), err)
	}
}
