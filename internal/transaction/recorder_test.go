package transaction

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a map-backed Store for exercising the recorder in isolation.
type fakeStore struct {
	txns    map[string]Transaction
	wallets map[string]WalletSnapshot
	owners  map[string]OwnerSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		txns:    make(map[string]Transaction),
		wallets: make(map[string]WalletSnapshot),
		owners:  make(map[string]OwnerSnapshot),
	}
}

func (s *fakeStore) CreateTransaction(_ context.Context, txn Transaction) (Transaction, error) {
	txn.ID = uuid.NewString()
	s.txns[txn.ID] = txn
	return txn, nil
}

func (s *fakeStore) TransactionByID(_ context.Context, id string) (Transaction, error) {
	txn, ok := s.txns[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return txn, nil
}

func (s *fakeStore) UpdateTransaction(_ context.Context, txn Transaction) (Transaction, error) {
	if _, ok := s.txns[txn.ID]; !ok {
		return Transaction{}, ErrNotFound
	}
	s.txns[txn.ID] = txn
	return txn, nil
}

func (s *fakeStore) TransactionByReference(_ context.Context, reference string) (*Transaction, error) {
	for _, txn := range s.txns {
		if txn.Reference == reference {
			t := txn
			return &t, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) WalletSnapshotByID(_ context.Context, walletID string) (WalletSnapshot, error) {
	w, ok := s.wallets[walletID]
	if !ok {
		return WalletSnapshot{}, fmt.Errorf("wallet %s not found", walletID)
	}
	return w, nil
}

func (s *fakeStore) OwnerSnapshotByID(_ context.Context, userID string) (OwnerSnapshot, error) {
	o, ok := s.owners[userID]
	if !ok {
		return OwnerSnapshot{}, fmt.Errorf("owner %s not found", userID)
	}
	return o, nil
}

func (s *fakeStore) addAccount(firstName, email string) (OwnerSnapshot, WalletSnapshot) {
	owner := OwnerSnapshot{ID: uuid.NewString(), FirstName: firstName, LastName: "Okafor", Email: email}
	wallet := WalletSnapshot{ID: uuid.NewString(), OwnerID: owner.ID, Balance: decimal.Zero}
	s.owners[owner.ID] = owner
	s.wallets[wallet.ID] = wallet
	return owner, wallet
}

func TestCreateStartsPendingWithSnapshots(t *testing.T) {
	store := newFakeStore()
	owner, wallet := store.addAccount("Ada", "ada@example.com")
	recorder := NewRecorder(store)

	receipt, err := recorder.Create(context.Background(), CreateInput{
		WalletID:      wallet.ID,
		OwnerID:       owner.ID,
		Type:          TypeFund,
		Amount:        decimal.RequireFromString("100.00"),
		BalanceBefore: decimal.Zero,
		BalanceAfter:  decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, receipt.Status)
	assert.NotEmpty(t, receipt.ID)
	assert.NotEmpty(t, receipt.Reference)
	assert.Equal(t, wallet.ID, receipt.Wallet.ID)
	assert.Equal(t, "Ada", receipt.Owner.FirstName)
	assert.Nil(t, receipt.Sender)
	assert.Nil(t, receipt.Receiver)
	assert.Nil(t, receipt.ProcessedAt)
}

func TestCreateTransferLegCarriesCounterparties(t *testing.T) {
	store := newFakeStore()
	sender, senderWallet := store.addAccount("Ada", "ada@example.com")
	receiver, receiverWallet := store.addAccount("Bola", "bola@example.com")
	recorder := NewRecorder(store)

	receipt, err := recorder.Create(context.Background(), CreateInput{
		WalletID:             senderWallet.ID,
		OwnerID:              sender.ID,
		Type:                 TypeTransfer,
		Amount:               decimal.RequireFromString("50.00"),
		SenderID:             sender.ID,
		ReceiverID:           receiver.ID,
		CounterpartyWalletID: receiverWallet.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, receipt.Sender)
	require.NotNil(t, receipt.Receiver)
	assert.Equal(t, "Ada", receipt.Sender.FirstName)
	assert.Equal(t, "bola@example.com", receipt.Receiver.Email)
	assert.Equal(t, receiverWallet.ID, receipt.CounterpartyWalletID)
}

func TestMarkSuccessStampsProcessedAt(t *testing.T) {
	store := newFakeStore()
	owner, wallet := store.addAccount("Ada", "ada@example.com")
	recorder := NewRecorder(store)

	receipt, err := recorder.Create(context.Background(), CreateInput{
		WalletID: wallet.ID, OwnerID: owner.ID, Type: TypeFund,
		Amount: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	after := decimal.RequireFromString("10.00")
	txn, err := recorder.MarkSuccess(context.Background(), receipt.ID, &after)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, txn.Status)
	require.NotNil(t, txn.ProcessedAt)
	assert.True(t, txn.BalanceAfter.Equal(after))
}

func TestTerminalStatusesAreImmutable(t *testing.T) {
	store := newFakeStore()
	owner, wallet := store.addAccount("Ada", "ada@example.com")
	recorder := NewRecorder(store)

	create := func() string {
		receipt, err := recorder.Create(context.Background(), CreateInput{
			WalletID: wallet.ID, OwnerID: owner.ID, Type: TypeWithdraw,
			Amount: decimal.RequireFromString("10.00"),
		})
		require.NoError(t, err)
		return receipt.ID
	}

	succeeded := create()
	_, err := recorder.MarkSuccess(context.Background(), succeeded, nil)
	require.NoError(t, err)

	failed := create()
	txn, err := recorder.MarkFailed(context.Background(), failed, "provider timeout")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, txn.Status)
	assert.Equal(t, "provider timeout", txn.FailureReason)
	require.NotNil(t, txn.FailedAt)

	cancelled := create()
	txn, err = recorder.MarkCancelled(context.Background(), cancelled, "user abort")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, txn.Status)

	for _, id := range []string{succeeded, failed, cancelled} {
		_, err := recorder.MarkSuccess(context.Background(), id, nil)
		assert.ErrorIs(t, err, ErrTerminalStatus)
		_, err = recorder.MarkFailed(context.Background(), id, "again")
		assert.ErrorIs(t, err, ErrTerminalStatus)
		_, err = recorder.MarkCancelled(context.Background(), id, "again")
		assert.ErrorIs(t, err, ErrTerminalStatus)
	}
}

func TestMarkSuccessUnknownTransaction(t *testing.T) {
	recorder := NewRecorder(newFakeStore())

	_, err := recorder.MarkSuccess(context.Background(), uuid.NewString(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestByReferenceMissReturnsNil(t *testing.T) {
	recorder := NewRecorder(newFakeStore())

	txn, err := recorder.ByReference(context.Background(), "TXN_1_ZZZZZZ")
	require.NoError(t, err)
	assert.Nil(t, txn)
}

func TestGenerateReferenceFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^TXN_\d{13}_[A-Z0-9]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := GenerateReference()
		assert.True(t, pattern.MatchString(ref), "reference %q", ref)
		seen[ref] = true
	}
	// 100 draws from a 36^6 space colliding would point at a broken source.
	assert.Greater(t, len(seen), 95)
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("25.00")
	walletID := uuid.NewString()

	cases := []struct {
		name string
		txn  Transaction
		want string
	}{
		{"fund", Transaction{Type: TypeFund, Amount: amount, WalletID: walletID}, "25.00"},
		{"withdraw", Transaction{Type: TypeWithdraw, Amount: amount, WalletID: walletID}, "-25.00"},
		{"transfer debit", Transaction{Type: TypeTransfer, Amount: amount, WalletID: walletID, SenderID: "a", OwnerID: "a"}, "-25.00"},
		{"transfer credit", Transaction{Type: TypeTransfer, Amount: amount, WalletID: walletID, SenderID: "a", OwnerID: "b"}, "25.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.txn.SignedAmount().Equal(decimal.RequireFromString(tc.want)), "got %s", tc.txn.SignedAmount())
		})
	}
}
