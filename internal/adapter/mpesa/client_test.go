package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BotCoder254/projects254/internal/entity"
	"github.com/BotCoder254/projects254/internal/usecase"
)

const sandboxPasskey = "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"

var fixedNow = time.Date(2024, 3, 9, 12, 4, 5, 0, time.UTC)

type fakeDaraja struct {
	tokenCalls atomic.Int32
	pushCalls  atomic.Int32
	tokenBody  string
	tokenCode  int
	push       func(w http.ResponseWriter, r *http.Request)
	query      func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeDaraja) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" || r.URL.Query().Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.tokenCode != 0 {
			w.WriteHeader(f.tokenCode)
			_, _ = w.Write([]byte(f.tokenBody))
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":"3599"}`, n)
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.pushCalls.Add(1)
		f.push(w, r)
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		f.query(w, r)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeDaraja) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        sandboxPasskey,
		CallbackURL:    "https://cb.example/api/mpesa/callback",
		Timeout:        2 * time.Second,
	}, WithClock(func() time.Time { return fixedNow }))
}

func TestPassword(t *testing.T) {
	c := NewClient(Config{ShortCode: "174379", Passkey: sandboxPasskey})
	assert.Equal(t,
		"MTc0Mzc5YmZiMjc5ZjlhYTliZGJjZjE1OGU5N2RkNzFhNDY3Y2QyZTBjODkzMDU5YjEwZjc4ZTZiNzJhZGExZWQyYzkxOTIwMjQwMzA5MTUwNDA1",
		c.Password("20240309150405"))
}

func TestInitiatePayment_Accepted(t *testing.T) {
	var got stkPushRequest
	f := &fakeDaraja{push: func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`))
	}}
	c := newTestClient(t, f)

	acc, err := c.InitiatePayment(context.Background(), "0712 345 678", decimal.RequireFromString("25.50"), "FOODHUB-SESSION-1234")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", acc.CheckoutRequestID)
	assert.Equal(t, "m-1", acc.MerchantRequestID)
	assert.Equal(t, "254712345678", acc.Phone)

	assert.Equal(t, int64(26), got.Amount, "amount rounds up to a whole unit")
	assert.Equal(t, "20240309150405", got.Timestamp)
	assert.Equal(t, c.Password("20240309150405"), got.Password)
	assert.Equal(t, "254712345678", got.PartyA)
	assert.Equal(t, "254712345678", got.PhoneNumber)
	assert.Equal(t, "174379", got.PartyB)
	assert.Equal(t, "CustomerPayBillOnline", got.TransactionType)
	assert.Len(t, got.AccountReference, 12)

	_, err = c.InitiatePayment(context.Background(), "254712345678", decimal.NewFromInt(1), "x")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token is cached")
}

func TestInitiatePayment_Refused(t *testing.T) {
	f := &fakeDaraja{push: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"requestId":"r-1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`))
	}}
	c := newTestClient(t, f)

	_, err := c.InitiatePayment(context.Background(), "254712345678", decimal.NewFromInt(10), "ref")
	var pie *usecase.PaymentInitiationError
	require.True(t, errors.As(err, &pie), "%v", err)
	assert.Equal(t, "Bad Request - Invalid PhoneNumber", pie.Description)
}

func TestInitiatePayment_Validation(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f)

	_, err := c.InitiatePayment(context.Background(), "12345", decimal.NewFromInt(10), "ref")
	assert.ErrorIs(t, err, usecase.ErrValidation)
	_, err = c.InitiatePayment(context.Background(), "254712345678", decimal.Zero, "ref")
	assert.ErrorIs(t, err, usecase.ErrValidation)
	assert.Zero(t, f.tokenCalls.Load())
}

func TestAuthenticate_Rejected(t *testing.T) {
	f := &fakeDaraja{tokenCode: http.StatusUnauthorized, tokenBody: `{"errorMessage":"Invalid credentials"}`}
	c := newTestClient(t, f)

	_, err := c.InitiatePayment(context.Background(), "254712345678", decimal.NewFromInt(10), "ref")
	var ae *usecase.AuthError
	require.True(t, errors.As(err, &ae), "%v", err)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Zero(t, f.pushCalls.Load())
}

func TestPost_ReauthenticatesOn401(t *testing.T) {
	f := &fakeDaraja{}
	f.push = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"CheckoutRequestID":"ws_CO_2","ResponseCode":"0"}`))
	}
	c := newTestClient(t, f)

	acc, err := c.InitiatePayment(context.Background(), "254712345678", decimal.NewFromInt(10), "ref")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_2", acc.CheckoutRequestID)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
	assert.Equal(t, int32(2), f.pushCalls.Load())
}

func TestQueryStatus_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.PaymentState
		txn    string
	}{
		{"processing", http.StatusInternalServerError, `{"requestId":"r","errorCode":"500.001.1001","errorMessage":"The transaction is being processed"}`, domain.PaymentPending, ""},
		{"completed string code", http.StatusOK, `{"ResponseCode":"0","CheckoutRequestID":"ws_CO_1","ResultCode":"0","ResultDesc":"The service request is processed successfully.","MpesaReceiptNumber":"ABC123"}`, domain.PaymentCompleted, "ABC123"},
		{"completed numeric code", http.StatusOK, `{"ResponseCode":"0","ResultCode":0,"ResultDesc":"ok"}`, domain.PaymentCompleted, ""},
		{"cancelled", http.StatusOK, `{"ResponseCode":"0","ResultCode":"1032","ResultDesc":"Request cancelled by user"}`, domain.PaymentCancelled, ""},
		{"insufficient funds", http.StatusOK, `{"ResponseCode":"0","ResultCode":"1","ResultDesc":"The balance is insufficient for the transaction"}`, domain.PaymentFailed, ""},
		{"garbage", http.StatusBadGateway, `<html>bad gateway</html>`, domain.PaymentFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeDaraja{query: func(w http.ResponseWriter, r *http.Request) {
				var req stkQueryRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "ws_CO_1", req.CheckoutRequestID)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}}
			c := newTestClient(t, f)

			res, err := c.QueryStatus(context.Background(), "ws_CO_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.State)
			assert.Equal(t, tt.txn, res.TransactionID)
			if tt.want == domain.PaymentFailed {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestQueryStatus_TransportErrorIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, ShortCode: "174379"})

	res, err := c.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, res.State)
}
