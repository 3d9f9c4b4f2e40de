package aa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/finlink/internal/fault"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int) {
	t.Helper()
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		require.Equal(t, "bridge", r.Header.Get("client"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "client_credentials", body["grant_type"])
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.URL+"/login", "cid", "secret", "pid"), &logins
}

func TestCreateConsentSendsAuthHeaders(t *testing.T) {
	t.Parallel()
	c, logins := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/consents", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.Equal(t, "cid", r.Header.Get("x-client-id"))
		require.Equal(t, "secret", r.Header.Get("x-client-secret"))
		require.Equal(t, "pid", r.Header.Get("x-product-instance-id"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "user@bank", body["vua"])
		duration, _ := body["consentDuration"].(map[string]any)
		require.Equal(t, "MONTH", duration["unit"])

		json.NewEncoder(w).Encode(map[string]string{"id": "cst-1", "status": "PENDING"})
	})

	resp, err := c.CreateConsent(context.Background(), ConsentRequest{
		VUA:   "user@bank",
		Range: DateRange{From: time.Now().AddDate(-1, 0, 0), To: time.Now()},
	})
	require.NoError(t, err)
	require.Equal(t, "cst-1", resp.ID)
	require.Equal(t, 1, *logins)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	t.Parallel()
	c, logins := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "cst-1", "status": "ACTIVE"})
	})

	ctx := context.Background()
	_, err := c.GetConsent(ctx, "cst-1")
	require.NoError(t, err)
	_, err = c.GetConsent(ctx, "cst-1")
	require.NoError(t, err)
	require.Equal(t, 1, *logins)
}

func TestProviderErrorsMapToUpstream(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.GetConsent(context.Background(), "cst-1")
	require.Error(t, err)
	require.True(t, fault.Is(err, fault.Upstream))
}

func TestCreateConsentRejectsEmptyID(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "PENDING"})
	})

	_, err := c.CreateConsent(context.Background(), ConsentRequest{VUA: "user@bank"})
	require.True(t, fault.Is(err, fault.Upstream))
}

func TestSessionStatusFlattensNestedPayload(t *testing.T) {
	t.Parallel()
	status := SessionStatus{
		ID:     "sess-1",
		Status: "COMPLETED",
		FIPs: []FIP{
			{ID: "fip-1", Accounts: []Account{
				{Data: AccountData{Account: AccountDetail{Transactions: TransactionList{
					Transaction: []json.RawMessage{
						json.RawMessage(`{"txnId":"a"}`),
						json.RawMessage(`{"txnId":"b"}`),
					},
				}}}},
			}},
			{ID: "fip-2", Accounts: []Account{
				{Data: AccountData{Account: AccountDetail{Transactions: TransactionList{
					Transaction: []json.RawMessage{json.RawMessage(`{"txnId":"c"}`)},
				}}}},
			}},
		},
	}

	raws := status.Transactions()
	require.Len(t, raws, 3)

	txn, err := DecodeTxn(raws[2])
	require.NoError(t, err)
	require.Equal(t, "c", txn.TxnID)
}
