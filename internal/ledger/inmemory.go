package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/kudi_pay/internal/transaction"
)

// MemoryStore is an in-memory Store used by unit tests and dev mode without a
// database. A single mutex serializes atomic units, which trivially satisfies
// the per-wallet isolation requirement; each unit works on a staged copy of
// the state so a failed unit leaves nothing behind.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	users         map[string]User
	wallets       map[string]Wallet
	walletByOwner map[string]string
	txns          map[string]transaction.Transaction
	txnOrder      []string
	refs          map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func newMemState() memState {
	return memState{
		users:         make(map[string]User),
		wallets:       make(map[string]Wallet),
		walletByOwner: make(map[string]string),
		txns:          make(map[string]transaction.Transaction),
		refs:          make(map[string]struct{}),
	}
}

func (s memState) clone() memState {
	c := memState{
		users:         make(map[string]User, len(s.users)),
		wallets:       make(map[string]Wallet, len(s.wallets)),
		walletByOwner: make(map[string]string, len(s.walletByOwner)),
		txns:          make(map[string]transaction.Transaction, len(s.txns)),
		txnOrder:      append([]string(nil), s.txnOrder...),
		refs:          make(map[string]struct{}, len(s.refs)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.walletByOwner {
		c.walletByOwner[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	for k := range s.refs {
		c.refs[k] = struct{}{}
	}
	return c
}

// RunAtomic serializes units behind the store mutex and commits the staged
// state only when fn succeeds.
func (s *MemoryStore) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.state.clone()
	if err := fn(ctx, &memTx{st: &staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *MemoryStore) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{st: &s.state}).walletByOwner(ownerID)
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{st: &s.state}).userByEmail(email), nil
}

func (s *MemoryStore) UserByID(_ context.Context, userID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{st: &s.state}).userByID(userID)
}

func (s *MemoryStore) TransactionByReference(_ context.Context, reference string) (*transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{st: &s.state}).txnByReference(reference), nil
}

// Transactions returns all recorded rows in creation order. Test observer.
func (s *MemoryStore) Transactions() []transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transaction.Transaction, 0, len(s.state.txnOrder))
	for _, id := range s.state.txnOrder {
		out = append(out, s.state.txns[id])
	}
	return out
}

type memTx struct {
	st *memState
}

func (t *memTx) WalletByOwnerForUpdate(_ context.Context, ownerID string) (Wallet, error) {
	return t.walletByOwner(ownerID)
}

func (t *memTx) WalletsForUpdate(_ context.Context, ownerIDs ...string) ([]Wallet, error) {
	var wallets []Wallet
	for _, ownerID := range ownerIDs {
		if id, ok := t.st.walletByOwner[ownerID]; ok {
			wallets = append(wallets, t.st.wallets[id])
		}
	}
	return wallets, nil
}

func (t *memTx) WalletByID(_ context.Context, walletID string) (Wallet, error) {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (t *memTx) UpdateWalletBalance(_ context.Context, walletID string, newBalance decimal.Decimal) (Wallet, error) {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	w.Balance = newBalance
	w.UpdatedAt = time.Now().UTC()
	t.st.wallets[walletID] = w
	return w, nil
}

func (t *memTx) UserByEmail(_ context.Context, email string) (*User, error) {
	return t.userByEmail(email), nil
}

func (t *memTx) UserByID(_ context.Context, userID string) (User, error) {
	return t.userByID(userID)
}

func (t *memTx) CreateUser(_ context.Context, u User) (User, error) {
	for _, existing := range t.st.users {
		if existing.DeletedAt != nil {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) ||
			(u.Phone != "" && existing.Phone == u.Phone) ||
			(u.BVN != "" && existing.BVN == u.BVN) {
			return User{}, ErrUniqueViolation
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	t.st.users[u.ID] = u
	return u, nil
}

func (t *memTx) CreateWallet(_ context.Context, w Wallet) (Wallet, error) {
	if _, exists := t.st.walletByOwner[w.OwnerID]; exists {
		return Wallet{}, ErrUniqueViolation
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	t.st.wallets[w.ID] = w
	t.st.walletByOwner[w.OwnerID] = w.ID
	return w, nil
}

func (t *memTx) CreateTransaction(_ context.Context, txn transaction.Transaction) (transaction.Transaction, error) {
	refKey := txn.WalletID + "|" + txn.Reference
	if _, exists := t.st.refs[refKey]; exists {
		return transaction.Transaction{}, ErrDuplicateReference
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	t.st.txns[txn.ID] = txn
	t.st.txnOrder = append(t.st.txnOrder, txn.ID)
	t.st.refs[refKey] = struct{}{}
	return txn, nil
}

func (t *memTx) TransactionByID(_ context.Context, id string) (transaction.Transaction, error) {
	txn, ok := t.st.txns[id]
	if !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return txn, nil
}

func (t *memTx) UpdateTransaction(_ context.Context, txn transaction.Transaction) (transaction.Transaction, error) {
	if _, ok := t.st.txns[txn.ID]; !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	t.st.txns[txn.ID] = txn
	return txn, nil
}

func (t *memTx) TransactionByReference(_ context.Context, reference string) (*transaction.Transaction, error) {
	return t.txnByReference(reference), nil
}

func (t *memTx) WalletSnapshotByID(_ context.Context, walletID string) (transaction.WalletSnapshot, error) {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return transaction.WalletSnapshot{}, ErrWalletNotFound
	}
	return transaction.WalletSnapshot{ID: w.ID, OwnerID: w.OwnerID, Balance: w.Balance}, nil
}

func (t *memTx) OwnerSnapshotByID(_ context.Context, userID string) (transaction.OwnerSnapshot, error) {
	u, err := t.userByID(userID)
	if err != nil {
		return transaction.OwnerSnapshot{}, err
	}
	return transaction.OwnerSnapshot{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}, nil
}

func (t *memTx) walletByOwner(ownerID string) (Wallet, error) {
	id, ok := t.st.walletByOwner[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return t.st.wallets[id], nil
}

func (t *memTx) userByEmail(email string) *User {
	for _, u := range t.st.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			user := u
			return &user
		}
	}
	return nil
}

func (t *memTx) userByID(userID string) (User, error) {
	u, ok := t.st.users[userID]
	if !ok || u.DeletedAt != nil {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (t *memTx) txnByReference(reference string) *transaction.Transaction {
	for _, id := range t.st.txnOrder {
		if txn := t.st.txns[id]; txn.Reference == reference {
			out := txn
			return &out
		}
	}
	return nil
}
