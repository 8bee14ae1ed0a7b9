package model

import "time"

// Transaction type values. Every row in the `transactions` table carries
// one of these, identifying what caused the balance change.
const (
    TxnDeposit           = "DEPOSIT"            // user top-up
    TxnReservationCharge = "RESERVATION_CHARGE" // flat booking fee at reservation time
    TxnRefund            = "REFUND"             // reversal of a reservation charge
    TxnSessionCharge     = "SESSION_CHARGE"     // energy cost at session completion
)

// TxnCompleted is the only transaction status written today. The column
// exists so failed or pending external payments can be represented later
// without a schema change.
const TxnCompleted = "COMPLETED"

// Wallet represents a row in the `wallets` table. Each user has at most
// one wallet (user_id is unique). BalanceCents must never go negative;
// the repository enforces this with a conditional UPDATE rather than a
// read-then-write sequence.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owning user (1:1).
//  BalanceCents – current stored value in cents.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last balance change.
type Wallet struct {
    ID           uint64    // wallets.id
    UserID       uint64    // wallets.user_id
    BalanceCents int64     // wallets.balance_cents
    CreatedAt    time.Time // wallets.created_at
    UpdatedAt    time.Time // wallets.updated_at
}

// Transaction is an append-only ledger entry in the `transactions`
// table. Rows are never updated or deleted after creation; the sum of
// AmountCents over a wallet's transactions always equals the wallet's
// balance.
//
// Fields:
//  ID          – primary key identifier.
//  WalletID    – wallet whose balance changed.
//  AmountCents – signed amount; positive credits, negative debits.
//  Type        – one of the Txn* constants above.
//  Status      – transaction status (currently always TxnCompleted).
//  Description – human-readable explanation shown in statements.
//  ReferenceID – reservation that caused the entry, when applicable.
//  CreatedAt   – timestamp of creation.
type Transaction struct {
    ID          uint64    // transactions.id
    WalletID    uint64    // transactions.wallet_id
    AmountCents int64     // transactions.amount_cents
    Type        string    // transactions.type
    Status      string    // transactions.status
    Description string    // transactions.description
    ReferenceID *uint64   // transactions.reference_id (nullable)
    CreatedAt   time.Time // transactions.created_at
}
