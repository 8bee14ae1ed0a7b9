package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/voltway/voltway-api/internal/model"
    "github.com/voltway/voltway-api/internal/repository"
)

// WalletHandler serves the stored-value wallet: balance lookup, the
// transaction statement and deposits. A wallet is created lazily on
// first access. Deposits run the balance update and the ledger insert
// inside one transaction so the two can never diverge.
type WalletHandler struct {
    Wallets *repository.WalletRepo
}

// NewWalletHandler constructs a WalletHandler. The repository must be
// non-nil.
func NewWalletHandler(wallets *repository.WalletRepo) *WalletHandler {
    if wallets == nil {
        panic("nil repository passed to NewWalletHandler")
    }
    return &WalletHandler{Wallets: wallets}
}

// ----- DTOs -----

type walletResp struct {
    ID           uint64 `json:"id"`
    UserID       uint64 `json:"userId"`
    BalanceCents int64  `json:"balanceCents"`
    UpdatedAt    string `json:"updatedAt"`
}

func toWalletResp(w *model.Wallet) walletResp {
    return walletResp{
        ID:           w.ID,
        UserID:       w.UserID,
        BalanceCents: w.BalanceCents,
        UpdatedAt:    w.UpdatedAt.UTC().Format(timeRFC3339),
    }
}

type transactionResp struct {
    ID          uint64  `json:"id"`
    WalletID    uint64  `json:"walletId"`
    AmountCents int64   `json:"amountCents"`
    Type        string  `json:"type"`
    Status      string  `json:"status"`
    Description string  `json:"description"`
    ReferenceID *uint64 `json:"referenceId,omitempty"`
    CreatedAt   string  `json:"createdAt"`
}

func toTransactionResp(t *model.Transaction) transactionResp {
    return transactionResp{
        ID:          t.ID,
        WalletID:    t.WalletID,
        AmountCents: t.AmountCents,
        Type:        t.Type,
        Status:      t.Status,
        Description: t.Description,
        ReferenceID: t.ReferenceID,
        CreatedAt:   t.CreatedAt.UTC().Format(timeRFC3339),
    }
}

// Get handles GET /v1/wallet and returns the caller's wallet, creating
// an empty one on first access.
func (h *WalletHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    w, err := h.Wallets.GetOrCreateByUserID(c.Request().Context(), userID)
    if err != nil {
        return failInternal(c)
    }
    return respond(c, http.StatusOK, echo.Map{"wallet": toWalletResp(w)})
}

// ListTransactions handles GET /v1/wallet/transactions?limit&offset and
// returns the caller's ledger entries newest first.
func (h *WalletHandler) ListTransactions(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx := c.Request().Context()
    w, err := h.Wallets.GetOrCreateByUserID(ctx, userID)
    if err != nil {
        return failInternal(c)
    }
    txns, err := h.Wallets.ListTransactions(ctx, w.ID,
        queryInt(c, "limit", 50), queryInt(c, "offset", 0))
    if err != nil {
        return failInternal(c)
    }
    items := make([]transactionResp, 0, len(txns))
    for i := range txns {
        items = append(items, toTransactionResp(&txns[i]))
    }
    return respond(c, http.StatusOK, echo.Map{"transactions": items})
}

// Deposit handles POST /v1/wallet/deposit. The body carries
// amountCents > 0. The credit and its DEPOSIT ledger entry commit
// atomically.
func (h *WalletHandler) Deposit(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var body struct {
        AmountCents int64 `json:"amountCents"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.AmountCents <= 0 {
        return fail(c, http.StatusBadRequest, "amountCents must be greater than zero")
    }
    ctx := c.Request().Context()
    w, err := h.Wallets.GetOrCreateByUserID(ctx, userID)
    if err != nil {
        return failInternal(c)
    }
    tx, err := h.Wallets.DB().BeginTx(ctx, nil)
    if err != nil {
        return failInternal(c)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := h.Wallets.CreditTx(ctx, tx, w.ID, body.AmountCents); err != nil {
        return failInternal(c)
    }
    txn := model.Transaction{
        WalletID:    w.ID,
        AmountCents: body.AmountCents,
        Type:        model.TxnDeposit,
        Status:      model.TxnCompleted,
        Description: "Wallet deposit",
    }
    if err := h.Wallets.InsertTransactionTx(ctx, tx, &txn); err != nil {
        return failInternal(c)
    }
    if err := tx.Commit(); err != nil {
        return failInternal(c)
    }
    committed = true
    w.BalanceCents += body.AmountCents
    return respond(c, http.StatusCreated, echo.Map{
        "wallet":      toWalletResp(w),
        "transaction": toTransactionResp(&txn),
    })
}
