package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiError is the error envelope returned by the API.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type fundView struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name"`
	IsOpen       bool       `json:"is_open"`
	Status       string     `json:"status"`
	Owner        string     `json:"owner"`
	Receiver     string     `json:"receiver"`
	TotalDonated string     `json:"total_donated"`
	Description  string     `json:"description"`
	MetadataRef  string     `json:"metadata_ref"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at"`
}

type receiptView struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference"`
	At        time.Time `json:"at"`
}

type balanceView struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
	Ether   string `json:"ether"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error apiError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		envelope.Error.Status = resp.StatusCode
		if envelope.Error.Code == "" {
			envelope.Error.Code = "http_error"
			envelope.Error.Message = resp.Status
		}
		return &envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type createFundInput struct {
	Name        string `json:"name"`
	Owner       string `json:"owner,omitempty"`
	Receiver    string `json:"receiver,omitempty"`
	Description string `json:"description"`
	MetadataRef string `json:"metadata_ref,omitempty"`
}

func (c *client) createFund(ctx context.Context, in createFundInput) (fundView, error) {
	var out struct {
		Fund fundView `json:"fund"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/funds", in, &out)
	return out.Fund, err
}

func (c *client) donate(ctx context.Context, id uint64, value string) (fundView, string, error) {
	var out struct {
		Fund          fundView `json:"fund"`
		RewardBalance string   `json:"reward_balance"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/funds/%d/donations", id), map[string]string{"value": value}, &out)
	return out.Fund, out.RewardBalance, err
}

func (c *client) closeFund(ctx context.Context, id uint64) (fundView, receiptView, error) {
	var out struct {
		Fund    fundView    `json:"fund"`
		Receipt receiptView `json:"receipt"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/funds/%d/close", id), nil, &out)
	return out.Fund, out.Receipt, err
}

func (c *client) getFund(ctx context.Context, id uint64) (fundView, error) {
	var out fundView
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/funds/%d", id), nil, &out)
	return out, err
}

func (c *client) getFundTuple(ctx context.Context, id uint64) ([]any, error) {
	var out []any
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/funds/%d?format=tuple", id), nil, &out)
	return out, err
}

func (c *client) listFunds(ctx context.Context) ([]fundView, error) {
	var out struct {
		Items []fundView `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/funds", nil, &out)
	return out.Items, err
}

// rewards returns the reward balance of address, or of the token's caller
// when address is empty.
func (c *client) rewards(ctx context.Context, address string) (balanceView, error) {
	path := "/v1/rewards/me"
	if address != "" {
		path = "/v1/rewards/" + address
	}
	var out balanceView
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *client) wallet(ctx context.Context, address string) (balanceView, error) {
	var out balanceView
	err := c.do(ctx, http.MethodGet, "/v1/wallets/"+address, nil, &out)
	return out, err
}

func (c *client) faucet(ctx context.Context, address, value string) (balanceView, error) {
	var out balanceView
	err := c.do(ctx, http.MethodPost, "/v1/wallets/"+address+"/faucet", map[string]string{"value": value}, &out)
	return out, err
}
