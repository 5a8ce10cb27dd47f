package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kudipay/kudi_pay/internal/transaction"
)

// PostgresStore persists users, wallets and transactions in PostgreSQL.
// Atomic units map to database transactions; per-wallet isolation comes from
// SELECT ... FOR UPDATE row locks acquired before any balance read.
type PostgresStore struct {
	db        *pgxpool.Pool
	txTimeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed store. txTimeout bounds each
// atomic unit; zero falls back to 5s.
func NewPostgresStore(db *pgxpool.Pool, txTimeout time.Duration) *PostgresStore {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &PostgresStore{db: db, txTimeout: txTimeout}
}

// RunAtomic executes fn inside a single database transaction under a bounded
// deadline. Any error, including the deadline expiring, rolls everything back.
func (s *PostgresStore) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin atomic unit: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WalletByOwner fetches a wallet without locking it.
func (s *PostgresStore) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return scanWallet(s.db.QueryRow(ctx, walletSelect+` WHERE owner_id = $1`, mustUUID(ownerID)))
}

// UserByEmail resolves an active user by case-insensitive email.
func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanOptionalUser(s.db.QueryRow(ctx, userSelect+` WHERE lower(email) = lower($1) AND deleted_at IS NULL`, email))
}

// UserByID fetches an active user by id.
func (s *PostgresStore) UserByID(ctx context.Context, userID string) (User, error) {
	u, err := scanOptionalUser(s.db.QueryRow(ctx, userSelect+` WHERE id = $1 AND deleted_at IS NULL`, mustUUID(userID)))
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

// TransactionByReference performs a point lookup; absent references return nil.
func (s *PostgresStore) TransactionByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return scanOptionalTxn(s.db.QueryRow(ctx, txnSelect+` WHERE reference = $1 ORDER BY created_at LIMIT 1`, reference))
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// pgTx is the atomic-unit handle over an open database transaction.
type pgTx struct {
	q querier
}

const walletSelect = `SELECT id, owner_id, balance::text, created_at, updated_at FROM wallets`

func (t *pgTx) WalletByOwnerForUpdate(ctx context.Context, ownerID string) (Wallet, error) {
	return scanWallet(t.q.QueryRow(ctx, walletSelect+` WHERE owner_id = $1 FOR UPDATE`, mustUUID(ownerID)))
}

func (t *pgTx) WalletsForUpdate(ctx context.Context, ownerIDs ...string) ([]Wallet, error) {
	ids := make([]uuid.UUID, 0, len(ownerIDs))
	for _, ownerID := range ownerIDs {
		ids = append(ids, mustUUID(ownerID))
	}
	// ORDER BY id fixes the row-lock acquisition order across concurrent
	// transfers touching the same pair of wallets.
	rows, err := t.q.Query(ctx, walletSelect+` WHERE owner_id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWalletRow(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (t *pgTx) WalletByID(ctx context.Context, walletID string) (Wallet, error) {
	return scanWallet(t.q.QueryRow(ctx, walletSelect+` WHERE id = $1`, mustUUID(walletID)))
}

func (t *pgTx) UpdateWalletBalance(ctx context.Context, walletID string, newBalance decimal.Decimal) (Wallet, error) {
	return scanWallet(t.q.QueryRow(ctx, `UPDATE wallets SET balance = $1, updated_at = now()
        WHERE id = $2
        RETURNING id, owner_id, balance::text, created_at, updated_at`,
		newBalance.StringFixed(2), mustUUID(walletID)))
}

func (t *pgTx) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanOptionalUser(t.q.QueryRow(ctx, userSelect+` WHERE lower(email) = lower($1) AND deleted_at IS NULL`, email))
}

func (t *pgTx) UserByID(ctx context.Context, userID string) (User, error) {
	u, err := scanOptionalUser(t.q.QueryRow(ctx, userSelect+` WHERE id = $1 AND deleted_at IS NULL`, mustUUID(userID)))
	if err != nil {
		return User{}, err
	}
	if u == nil {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

const userSelect = `SELECT id, first_name, last_name, email, phone, bvn, date_of_birth, password_hash, created_at, updated_at, deleted_at FROM users`

func (t *pgTx) CreateUser(ctx context.Context, u User) (User, error) {
	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := t.q.QueryRow(ctx, `INSERT INTO users (id, first_name, last_name, email, phone, bvn, date_of_birth, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
        RETURNING id, first_name, last_name, email, phone, bvn, date_of_birth, password_hash, created_at, updated_at, deleted_at`,
		mustUUID(id), u.FirstName, u.LastName, u.Email, u.Phone, u.BVN, u.DateOfBirth, u.PasswordHash)
	created, err := scanOptionalUser(row)
	if err != nil {
		return User{}, mapConstraintErr(err)
	}
	return *created, nil
}

func (t *pgTx) CreateWallet(ctx context.Context, w Wallet) (Wallet, error) {
	id := w.ID
	if id == "" {
		id = uuid.NewString()
	}
	wallet, err := scanWallet(t.q.QueryRow(ctx, `INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
        VALUES ($1, $2, $3, now(), now())
        RETURNING id, owner_id, balance::text, created_at, updated_at`,
		mustUUID(id), mustUUID(w.OwnerID), w.Balance.StringFixed(2)))
	if err != nil {
		return Wallet{}, mapConstraintErr(err)
	}
	return wallet, nil
}

const txnReturning = `id, wallet_id, owner_id, type, amount::text, reference,
        COALESCE(sender_id::text, ''), COALESCE(receiver_id::text, ''), COALESCE(counterparty_wallet_id::text, ''),
        status, balance_before::text, balance_after::text, fee::text,
        COALESCE(channel, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''),
        created_at, processed_at, failed_at, COALESCE(failure_reason, '')`

const txnSelect = `SELECT ` + txnReturning + ` FROM transactions`

func (t *pgTx) CreateTransaction(ctx context.Context, txn transaction.Transaction) (transaction.Transaction, error) {
	id := txn.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := t.q.QueryRow(ctx, `INSERT INTO transactions
        (id, wallet_id, owner_id, type, amount, reference, sender_id, receiver_id, counterparty_wallet_id,
         status, balance_before, balance_after, fee, channel, ip_address, user_agent, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
        RETURNING `+txnReturning,
		mustUUID(id), mustUUID(txn.WalletID), mustUUID(txn.OwnerID), string(txn.Type),
		txn.Amount.StringFixed(2), txn.Reference,
		nullUUID(txn.SenderID), nullUUID(txn.ReceiverID), nullUUID(txn.CounterpartyWalletID),
		string(txn.Status), txn.BalanceBefore.StringFixed(2), txn.BalanceAfter.StringFixed(2),
		txn.Fee.StringFixed(2), nullString(txn.Channel), nullString(txn.IPAddress), nullString(txn.UserAgent))
	created, err := scanOptionalTxn(row)
	if err != nil {
		return transaction.Transaction{}, mapConstraintErr(err)
	}
	return *created, nil
}

func (t *pgTx) TransactionByID(ctx context.Context, id string) (transaction.Transaction, error) {
	txn, err := scanOptionalTxn(t.q.QueryRow(ctx, txnSelect+` WHERE id = $1`, mustUUID(id)))
	if err != nil {
		return transaction.Transaction{}, err
	}
	if txn == nil {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return *txn, nil
}

func (t *pgTx) UpdateTransaction(ctx context.Context, txn transaction.Transaction) (transaction.Transaction, error) {
	row := t.q.QueryRow(ctx, `UPDATE transactions SET
        status = $1, balance_after = $2, processed_at = $3, failed_at = $4, failure_reason = $5
        WHERE id = $6
        RETURNING `+txnReturning,
		string(txn.Status), txn.BalanceAfter.StringFixed(2), txn.ProcessedAt, txn.FailedAt,
		nullString(txn.FailureReason), mustUUID(txn.ID))
	updated, err := scanOptionalTxn(row)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if updated == nil {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return *updated, nil
}

func (t *pgTx) TransactionByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return scanOptionalTxn(t.q.QueryRow(ctx, txnSelect+` WHERE reference = $1 ORDER BY created_at LIMIT 1`, reference))
}

func (t *pgTx) WalletSnapshotByID(ctx context.Context, walletID string) (transaction.WalletSnapshot, error) {
	w, err := t.WalletByID(ctx, walletID)
	if err != nil {
		return transaction.WalletSnapshot{}, err
	}
	return transaction.WalletSnapshot{ID: w.ID, OwnerID: w.OwnerID, Balance: w.Balance}, nil
}

func (t *pgTx) OwnerSnapshotByID(ctx context.Context, userID string) (transaction.OwnerSnapshot, error) {
	u, err := t.UserByID(ctx, userID)
	if err != nil {
		return transaction.OwnerSnapshot{}, err
	}
	return transaction.OwnerSnapshot{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row pgx.Row) (Wallet, error) {
	return scanWalletRow(row)
}

func scanWalletRow(row rowScanner) (Wallet, error) {
	var (
		w         Wallet
		id, owner uuid.UUID
		balance   string
	)
	if err := row.Scan(&id, &owner, &balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = owner.String()
	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return w, nil
}

func scanOptionalUser(row pgx.Row) (*User, error) {
	var (
		u  User
		id uuid.UUID
	)
	err := row.Scan(&id, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.BVN, &u.DateOfBirth,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.ID = id.String()
	return &u, nil
}

func scanOptionalTxn(row pgx.Row) (*transaction.Transaction, error) {
	var (
		txn                                      transaction.Transaction
		id, walletID, ownerID                    uuid.UUID
		typ, status                              string
		amount, balanceBefore, balanceAfter, fee string
	)
	err := row.Scan(&id, &walletID, &ownerID, &typ, &amount, &txn.Reference,
		&txn.SenderID, &txn.ReceiverID, &txn.CounterpartyWalletID,
		&status, &balanceBefore, &balanceAfter, &fee,
		&txn.Channel, &txn.IPAddress, &txn.UserAgent,
		&txn.CreatedAt, &txn.ProcessedAt, &txn.FailedAt, &txn.FailureReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	txn.ID = id.String()
	txn.WalletID = walletID.String()
	txn.OwnerID = ownerID.String()
	txn.Type = transaction.Type(typ)
	txn.Status = transaction.Status(status)
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&txn.Amount, amount},
		{&txn.BalanceBefore, balanceBefore},
		{&txn.BalanceAfter, balanceAfter},
		{&txn.Fee, fee},
	} {
		if *field.dst, err = decimal.NewFromString(field.src); err != nil {
			return nil, fmt.Errorf("parse numeric %q: %w", field.src, err)
		}
	}
	return &txn, nil
}

// mapConstraintErr converts Postgres unique violations into store sentinels so
// races on identity fields and references surface deterministically.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "reference") {
			return fmt.Errorf("%w: %s", ErrDuplicateReference, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullUUID(s string) any {
	if s == "" {
		return nil
	}
	return mustUUID(s)
}

// mustUUID parses trusted internal identifiers; caller input is validated at
// the boundary before it reaches the store, so a bad id maps to uuid.Nil and
// simply misses.
func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
