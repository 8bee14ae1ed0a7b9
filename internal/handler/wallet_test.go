package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltway/voltway-api/internal/model"
	"github.com/voltway/voltway-api/internal/repository"
)

func newWalletHandler(t *testing.T) (*WalletHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWalletHandler(repository.NewWalletRepo(db)), mock
}

func TestDepositCreditsWallet(t *testing.T) {
	h, mock := newWalletHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(200))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_cents = balance_cents + ?`)).
		WithArgs(int64(5000), uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPost, "/v1/wallet/deposit", `{"amountCents":5000}`)
	require.NoError(t, h.Deposit(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(5200), data["wallet"].(map[string]interface{})["balanceCents"])
	txn := data["transaction"].(map[string]interface{})
	assert.Equal(t, model.TxnDeposit, txn["type"])
	assert.Equal(t, float64(5000), txn["amountCents"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	h, mock := newWalletHandler(t)

	for _, body := range []string{`{"amountCents":0}`, `{"amountCents":-100}`} {
		c, rec := newJSONContext(t, http.MethodPost, "/v1/wallet/deposit", body)
		require.NoError(t, h.Deposit(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
