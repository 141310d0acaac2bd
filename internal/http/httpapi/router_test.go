package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fundledger/internal/adapter/repo"
	"fundledger/internal/domain"
	"fundledger/internal/http/handlers"
	"fundledger/internal/ledger"
	"fundledger/internal/metrics"
	"fundledger/internal/middleware"
	"fundledger/internal/transfer"
)

const secret = "router-test-secret"

type testServer struct {
	handler http.Handler
	bank    *transfer.Bank
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	bank := transfer.NewBank(domain.RandomAddress(), zerolog.Nop())
	m := metrics.New(nil)
	l := ledger.New(bank,
		ledger.WithJournal(repo.NewMemoryJournal()),
		ledger.WithPayments(bank),
		ledger.WithObserver(m),
	)
	app := &handlers.App{Ledger: l, Bank: bank, Logger: zerolog.Nop(), FaucetEnabled: true}
	return &testServer{
		handler: NewRouter(app, Options{JWTSecret: secret, Metrics: m, Logger: zerolog.Nop()}),
		bank:    bank,
	}
}

func (s *testServer) do(t *testing.T, method, path string, caller domain.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := middleware.SignToken(secret, caller, time.Hour, time.Now())
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &payload)
	return payload.Error.Code
}

func TestFundLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner, donor := domain.RandomAddress(), domain.RandomAddress()

	rec := s.do(t, http.MethodPost, "/v1/funds", owner, map[string]string{"name": "Game", "description": "desc"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID   uint64 `json:"id"`
		Fund struct {
			Receiver string `json:"receiver"`
		} `json:"fund"`
	}
	decodeBody(t, rec, &created)
	if created.ID != 0 || created.Fund.Receiver != owner.String() {
		t.Fatalf("unexpected create response: %+v", created)
	}

	if rec := s.do(t, http.MethodPost, "/v1/wallets/"+donor.String()+"/faucet", donor, map[string]string{"value": "25"}); rec.Code != http.StatusOK {
		t.Fatalf("faucet: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/v1/funds/0/donations", donor, map[string]string{"value": "10"})
	if rec.Code != http.StatusOK {
		t.Fatalf("donate: %d %s", rec.Code, rec.Body.String())
	}
	var donated struct {
		Fund struct {
			TotalDonated string `json:"total_donated"`
		} `json:"fund"`
		RewardBalance string `json:"reward_balance"`
	}
	decodeBody(t, rec, &donated)
	if donated.Fund.TotalDonated != "10" || donated.RewardBalance != "10" {
		t.Fatalf("unexpected donate response: %+v", donated)
	}

	rec = s.do(t, http.MethodGet, "/v1/funds/0?format=tuple", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get tuple: %d", rec.Code)
	}
	var tuple []any
	decodeBody(t, rec, &tuple)
	want := []any{float64(0), "Game", true, owner.String(), owner.String(), "10", "desc"}
	if len(tuple) != len(want) {
		t.Fatalf("tuple = %v", tuple)
	}
	for i := range want {
		if tuple[i] != want[i] {
			t.Fatalf("tuple[%d] = %v, want %v", i, tuple[i], want[i])
		}
	}

	if rec := s.do(t, http.MethodPost, "/v1/funds/0/close", donor, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("close by donor: %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/v1/funds/0/close", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close: %d %s", rec.Code, rec.Body.String())
	}
	var closed struct {
		Fund struct {
			IsOpen bool `json:"is_open"`
		} `json:"fund"`
		Receipt struct {
			Amount string `json:"amount"`
		} `json:"receipt"`
	}
	decodeBody(t, rec, &closed)
	if closed.Fund.IsOpen || closed.Receipt.Amount != "10" {
		t.Fatalf("unexpected close response: %+v", closed)
	}

	rec = s.do(t, http.MethodGet, "/v1/wallets/"+owner.String(), "", nil)
	var wallet struct {
		Balance string `json:"balance"`
	}
	decodeBody(t, rec, &wallet)
	if wallet.Balance != "10" {
		t.Fatalf("owner wallet = %s, want 10", wallet.Balance)
	}

	rec = s.do(t, http.MethodPost, "/v1/funds/0/donations", donor, map[string]string{"value": "1"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "fund_closed" {
		t.Fatalf("donate after close: %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/v1/funds/0/close", owner, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "already_closed" {
		t.Fatalf("second close: %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/v1/rewards/me", donor, nil)
	var reward struct {
		Balance string `json:"balance"`
	}
	decodeBody(t, rec, &reward)
	if reward.Balance != "10" {
		t.Fatalf("reward = %s, want 10", reward.Balance)
	}

	rec = s.do(t, http.MethodGet, "/v1/healthz", "", nil)
	var health struct {
		Status     string `json:"status"`
		Funds      int    `json:"funds"`
		JournalSeq uint64 `json:"journal_seq"`
	}
	decodeBody(t, rec, &health)
	if health.Status != "ok" || health.Funds != 1 || health.JournalSeq != 3 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)
	owner := domain.RandomAddress()
	if rec := s.do(t, http.MethodPost, "/v1/funds", owner, map[string]string{"name": "x"}); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	tests := []struct {
		name   string
		method string
		path   string
		caller domain.Address
		body   any
		status int
		code   string
	}{
		{"unknown fund", http.MethodGet, "/v1/funds/7", "", nil, http.StatusNotFound, "not_found"},
		{"bad fund id", http.MethodGet, "/v1/funds/abc", "", nil, http.StatusBadRequest, "bad_request"},
		{"anonymous create", http.MethodPost, "/v1/funds", "", map[string]string{"name": "x"}, http.StatusUnauthorized, "unauthenticated"},
		{"bad owner", http.MethodPost, "/v1/funds", owner, map[string]string{"owner": "0x12"}, http.StatusBadRequest, "invalid_address"},
		{"unknown field", http.MethodPost, "/v1/funds", owner, map[string]string{"colour": "red"}, http.StatusBadRequest, "bad_request"},
		{"zero donation", http.MethodPost, "/v1/funds/0/donations", owner, map[string]string{"value": "0"}, http.StatusBadRequest, "invalid_amount"},
		{"fractional donation", http.MethodPost, "/v1/funds/0/donations", owner, map[string]string{"value": "1.5"}, http.StatusBadRequest, "invalid_amount"},
		{"empty wallet", http.MethodPost, "/v1/funds/0/donations", owner, map[string]string{"value": "5"}, http.StatusPaymentRequired, "insufficient_funds"},
		{"huge donation", http.MethodPost, "/v1/funds/0/donations", owner, map[string]string{"value": domain.MaxAmount.Add(decimal.NewFromInt(1)).String()}, http.StatusUnprocessableEntity, "overflow"},
		{"bad reward address", http.MethodGet, "/v1/rewards/nope", "", nil, http.StatusBadRequest, "invalid_address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.caller, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Fatalf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestFailedSweepReturnsBadGateway(t *testing.T) {
	s := newTestServer(t)
	owner, donor := domain.RandomAddress(), domain.RandomAddress()
	s.do(t, http.MethodPost, "/v1/funds", owner, map[string]string{"name": "x"})
	if err := s.bank.Mint(donor, decimal.NewFromInt(3)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	s.do(t, http.MethodPost, "/v1/funds/0/donations", donor, map[string]string{"value": "3"})
	s.bank.OnReceive(owner, func(context.Context, domain.Address, decimal.Decimal) error {
		return errors.New("receiver offline")
	})

	rec := s.do(t, http.MethodPost, "/v1/funds/0/close", owner, nil)
	if rec.Code != http.StatusBadGateway || errorCode(t, rec) != "transfer_failed" {
		t.Fatalf("close with failing receiver: %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/v1/funds/0", "", nil)
	var fund struct {
		IsOpen       bool   `json:"is_open"`
		TotalDonated string `json:"total_donated"`
	}
	decodeBody(t, rec, &fund)
	if !fund.IsOpen || fund.TotalDonated != "3" {
		t.Fatalf("fund after failed sweep: %+v", fund)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/v1/funds", domain.RandomAddress(), map[string]string{"name": "m"})

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"fundledger_ledger_funds_created_total 1", `route="/v1/funds"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestWalletRoutesWithoutBank(t *testing.T) {
	gw, err := transfer.NewHTTPGateway(transfer.HTTPGatewayOptions{BaseURL: "http://payout.invalid"})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	app := &handlers.App{Ledger: ledger.New(gw), Logger: zerolog.Nop()}
	h := NewRouter(app, Options{JWTSecret: secret, Logger: zerolog.Nop()})

	req := httptest.NewRequest(http.MethodGet, "/v1/wallets/"+domain.RandomAddress().String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("wallet without bank: %d", rec.Code)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, handlers.OpenAPIPath, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("openapi: %d", rec.Code)
	}
	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	decodeBody(t, rec, &doc)
	for _, p := range []string{"/v1/funds", "/v1/funds/{id}", "/v1/funds/{id}/donations", "/v1/funds/{id}/close", "/v1/rewards/me"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Fatalf("openapi document missing %s", p)
		}
	}

	etag := rec.Header().Get("ETag")
	req := httptest.NewRequest(http.MethodGet, handlers.OpenAPIPath, nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	s.handler.ServeHTTP(cached, req)
	if cached.Code != http.StatusNotModified {
		t.Fatalf("conditional openapi: %d", cached.Code)
	}

	rec = s.do(t, http.MethodGet, "/v1/docs", "", nil)
	if !strings.Contains(rec.Body.String(), `spec-url="/v1/openapi.json"`) {
		t.Fatal("docs page does not point at the openapi document")
	}
}
