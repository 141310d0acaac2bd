package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

type HTTPGatewayOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// HTTPGateway sends sweeps to an external payout service. Each call is a
// single attempt. The idempotency key is the transfer key on the context, so
// a retried sweep reuses the key of the first attempt and the service can
// answer it without paying twice.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

func NewHTTPGateway(opts HTTPGatewayOptions) (*HTTPGateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("payout: base url required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPGateway{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
		logger:     opts.Logger,
	}, nil
}

type payoutRequest struct {
	To             string `json:"to"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type payoutResponse struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

func (g *HTTPGateway) Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) (domain.TransferReceipt, error) {
	key := domain.TransferKey(ctx)
	if key == "" {
		key = uuid.NewString()
	}
	body, err := json.Marshal(payoutRequest{To: to.String(), Amount: amount.String(), IdempotencyKey: key})
	if err != nil {
		return domain.TransferReceipt{}, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return domain.TransferReceipt{}, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.TransferReceipt{}, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	var out payoutResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn().Int("status", resp.StatusCode).Str("to", to.String()).Str("idempotency_key", key).Msg("payout rejected")
		if out.Error != "" {
			return domain.TransferReceipt{}, fmt.Errorf("%w: payout http %d: %s", domain.ErrTransferFailed, resp.StatusCode, out.Error)
		}
		return domain.TransferReceipt{}, fmt.Errorf("%w: payout http %d", domain.ErrTransferFailed, resp.StatusCode)
	}

	id := out.ID
	if id == "" {
		id = key
	}
	return domain.TransferReceipt{
		ID:        id,
		To:        to,
		Amount:    amount,
		Reference: out.Reference,
		At:        time.Now().UTC(),
	}, nil
}
