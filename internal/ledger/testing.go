package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// SeedAccount is a test helper that inserts a user with a funded wallet,
// bypassing the engine. In-memory store only.
func SeedAccount(s *MemoryStore, u User, balance decimal.Decimal) (User, Wallet) {
	var (
		createdUser   User
		createdWallet Wallet
	)
	err := s.RunAtomic(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		if createdUser, err = tx.CreateUser(ctx, u); err != nil {
			return err
		}
		createdWallet, err = tx.CreateWallet(ctx, Wallet{OwnerID: createdUser.ID, Balance: balance})
		return err
	})
	if err != nil {
		panic("seed account: " + err.Error())
	}
	return createdUser, createdWallet
}
