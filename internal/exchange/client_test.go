package exchange

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"exec_go/internal/domain"
	"exec_go/internal/execution"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		endpoint: srv.URL,
		signer:   NewSigner("key", "secret", "pass"),
		http:     srv.Client(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testOrder() domain.Order {
	return domain.NewOrder("BTCUSDT", domain.SideBuy, domain.TypeLimit, 100010000, 1_00000000)
}

func TestClient_SubmitOrderAccepted(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("ACCESS-SIGN") == "" {
			t.Error("request not signed")
		}
		w.Write([]byte(`{"code":"00000","msg":"success","data":{"orderId":"EX-1","status":"accepted","filledQty":"0","avgPrice":"0"}}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv).SubmitOrder(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if resp.ExchangeOrderID != "EX-1" {
		t.Errorf("exchange id = %s, want EX-1", resp.ExchangeOrderID)
	}
	if resp.Status != domain.StatusAccepted {
		t.Errorf("status = %s, want ACCEPTED", resp.Status)
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv).SubmitOrder(context.Background(), testOrder())
	if !execution.IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestClient_DeclineIsBusinessRejection(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"51008","msg":"insufficient balance"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).SubmitOrder(context.Background(), testOrder())
	if !execution.IsBusinessRejection(err) {
		t.Fatalf("err = %v, want business rejection", err)
	}
}

func TestClient_ConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := testClient(srv)
	srv.Close()

	_, err := client.SubmitOrder(context.Background(), testOrder())
	if !execution.IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestClient_ValidateSecurity(t *testing.T) {
	plain := &Client{endpoint: "http://api.exchange.test", signer: NewSigner("k", "s", "p")}
	if err := plain.ValidateSecurity(); !execution.IsConfigError(err) {
		t.Errorf("plaintext endpoint: err = %v, want config error", err)
	}

	nocreds := &Client{endpoint: "https://api.exchange.test", signer: NewSigner("", "", "")}
	if err := nocreds.ValidateSecurity(); !execution.IsConfigError(err) {
		t.Errorf("missing creds: err = %v, want config error", err)
	}

	ok := &Client{endpoint: "https://api.exchange.test", signer: NewSigner("k", "s", "p")}
	if err := ok.ValidateSecurity(); err != nil {
		t.Errorf("valid transport: err = %v, want nil", err)
	}
}
