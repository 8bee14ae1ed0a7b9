package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/voltway/voltway-api/internal/model"
)

// ErrWalletNotFound is returned when a wallet lookup fails.
var ErrWalletNotFound = errors.New("wallet not found")

// WalletRepo provides access to wallets and their append-only
// transaction ledger. Balance changes only happen through DebitTx and
// CreditTx, which the caller runs inside a sql.Tx together with the
// matching InsertTransactionTx so that the balance update and the
// ledger entry commit or roll back as one unit.
//
// DebitTx enforces the non-negative balance invariant with a
// conditional UPDATE (decrement only when the resulting balance stays
// >= 0) instead of a read-then-write sequence, so concurrent debits
// against the same wallet can never drive the balance negative.
type WalletRepo struct {
    db *sql.DB
}

// NewWalletRepo returns a WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *WalletRepo) DB() *sql.DB { return r.db }

const walletColumns = `id, user_id, balance_cents, created_at, updated_at`

func scanWallet(row interface{ Scan(...interface{}) error }) (*model.Wallet, error) {
    var w model.Wallet
    if err := row.Scan(&w.ID, &w.UserID, &w.BalanceCents, &w.CreatedAt, &w.UpdatedAt); err != nil {
        return nil, err
    }
    return &w, nil
}

// GetByUserID returns the user's wallet or ErrWalletNotFound.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Wallet, error) {
    const q = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = ?`
    w, err := scanWallet(r.db.QueryRowContext(ctx, q, userID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrWalletNotFound
        }
        return nil, err
    }
    return w, nil
}

// GetOrCreateByUserID returns the user's wallet, creating an empty one
// on first access. Wallet creation races with itself across concurrent
// requests; the unique user_id index resolves the race and the loser
// re-reads the winner's row.
func (r *WalletRepo) GetOrCreateByUserID(ctx context.Context, userID uint64) (*model.Wallet, error) {
    w, err := r.GetByUserID(ctx, userID)
    if err == nil {
        return w, nil
    }
    if !errors.Is(err, ErrWalletNotFound) {
        return nil, err
    }
    if _, err := r.db.ExecContext(ctx,
        `INSERT INTO wallets (user_id, balance_cents) VALUES (?, 0)`, userID); err != nil {
        if !isDuplicateKey(err) {
            return nil, err
        }
    }
    return r.GetByUserID(ctx, userID)
}

// DebitTx decrements the wallet balance by amountCents within the given
// transaction. The UPDATE only matches when the current balance covers
// the amount, so a wallet can never observe a negative balance. When
// no row is updated the wallet either does not exist or cannot afford
// the debit; the two cases are told apart with a follow-up read.
func (r *WalletRepo) DebitTx(ctx context.Context, tx *sql.Tx, walletID uint64, amountCents int64) error {
    const q = `UPDATE wallets SET balance_cents = balance_cents - ? WHERE id = ? AND balance_cents >= ?`
    res, err := tx.ExecContext(ctx, q, amountCents, walletID, amountCents)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var id uint64
        err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE id = ?`, walletID).Scan(&id)
        if errors.Is(err, sql.ErrNoRows) {
            return ErrWalletNotFound
        }
        if err != nil {
            return err
        }
        return ErrInsufficientFunds
    }
    return nil
}

// CreditTx increments the wallet balance by amountCents within the
// given transaction. It returns ErrWalletNotFound when the wallet does
// not exist.
func (r *WalletRepo) CreditTx(ctx context.Context, tx *sql.Tx, walletID uint64, amountCents int64) error {
    const q = `UPDATE wallets SET balance_cents = balance_cents + ? WHERE id = ?`
    res, err := tx.ExecContext(ctx, q, amountCents, walletID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrWalletNotFound
    }
    return nil
}

// InsertTransactionTx appends a ledger entry within the given
// transaction and populates the generated ID. Ledger rows are
// append-only; there is deliberately no update or delete counterpart.
func (r *WalletRepo) InsertTransactionTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
    const q = `INSERT INTO transactions (wallet_id, amount_cents, type, status, description, reference_id)
               VALUES (?, ?, ?, ?, ?, ?)`
    var ref interface{}
    if t.ReferenceID != nil {
        ref = *t.ReferenceID
    }
    res, err := tx.ExecContext(ctx, q, t.WalletID, t.AmountCents, t.Type, t.Status, t.Description, ref)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    if t.CreatedAt.IsZero() {
        t.CreatedAt = time.Now().UTC()
    }
    return nil
}

// ListTransactions returns the wallet's ledger entries in reverse
// chronological order with limit/offset pagination.
func (r *WalletRepo) ListTransactions(ctx context.Context, walletID uint64, limit, offset int) ([]model.Transaction, error) {
    if limit <= 0 || limit > 100 {
        limit = 50
    }
    if offset < 0 {
        offset = 0
    }
    const q = `SELECT id, wallet_id, amount_cents, type, status, description, reference_id, created_at
               FROM transactions
               WHERE wallet_id = ?
               ORDER BY created_at DESC, id DESC
               LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, q, walletID, limit, offset)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    txns := make([]model.Transaction, 0)
    for rows.Next() {
        var t model.Transaction
        var ref sql.NullInt64
        if err := rows.Scan(&t.ID, &t.WalletID, &t.AmountCents, &t.Type, &t.Status,
            &t.Description, &ref, &t.CreatedAt); err != nil {
            return nil, err
        }
        if ref.Valid {
            v := uint64(ref.Int64)
            t.ReferenceID = &v
        }
        txns = append(txns, t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return txns, nil
}
