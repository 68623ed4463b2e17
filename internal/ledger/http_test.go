package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/minesgame/internal/model"
)

func newTestLedgerServer(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultHTTPConfig()
	cfg.BaseURL = srv.URL + "/"
	cfg.APIKey = "secret"
	return NewHTTPClient(cfg)
}

func TestHTTPClientDebit(t *testing.T) {
	var got DebitRequest
	client := newTestLedgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/debit", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"txn_id":"txn-1","balance":90.00}`))
	})

	result, err := client.Debit(context.Background(), DebitRequest{
		Player: alice,
		Amount: 1000,
		BetID:  "BT:r1:op:alice:10.00:3",
	})
	require.NoError(t, err)
	assert.Equal(t, "txn-1", result.TxnID)
	assert.Equal(t, model.Money(9000), result.BalanceOr(0))
	assert.Equal(t, model.Money(1000), got.Amount)
	assert.Equal(t, alice, got.Player)
}

func TestHTTPClientDebitWithoutTxnIsDeclined(t *testing.T) {
	client := newTestLedgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":90.00}`))
	})

	_, err := client.Debit(context.Background(), DebitRequest{Player: alice, Amount: 1000})
	assert.ErrorIs(t, err, ErrDeclined)
}

func TestHTTPClientRejection(t *testing.T) {
	client := newTestLedgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"insufficient funds"}`))
	})

	_, err := client.Debit(context.Background(), DebitRequest{Player: alice, Amount: 1000})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestHTTPClientServerError(t *testing.T) {
	client := newTestLedgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Credit(context.Background(), CreditRequest{Player: alice, Amount: 100, TxnID: "t"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeclined)
}

func TestHTTPClientCreditAndBalance(t *testing.T) {
	client := newTestLedgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/credit":
			var req CreditRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "txn-1", req.TxnID)
			_, _ = w.Write([]byte(`{"balance":115.50}`))
		case r.Method == http.MethodGet && r.URL.Path == "/balance/op/alice":
			_, _ = w.Write([]byte(`{"balance":"115.50"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	credit, err := client.Credit(context.Background(), CreditRequest{Player: alice, Amount: 2550, TxnID: "txn-1"})
	require.NoError(t, err)
	assert.Equal(t, model.Money(11550), credit.BalanceOr(0))

	balance, err := client.Balance(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, model.Money(11550), balance)
}

func TestHTTPClientAcknowledgementWithoutBalance(t *testing.T) {
	client := newTestLedgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/debit" {
			_, _ = w.Write([]byte(`{"txn_id":"txn-1"}`))
		}
	})

	debit, err := client.Debit(context.Background(), DebitRequest{Player: alice, Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, "txn-1", debit.TxnID)
	assert.Nil(t, debit.Balance)
	assert.Equal(t, model.Money(9000), debit.BalanceOr(9000))

	credit, err := client.Credit(context.Background(), CreditRequest{Player: alice, Amount: 2550, TxnID: "txn-1"})
	require.NoError(t, err)
	assert.Nil(t, credit.Balance)
	assert.Equal(t, model.Money(11550), credit.BalanceOr(11550))
}
