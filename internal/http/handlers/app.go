package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fundledger/internal/domain"
	"fundledger/internal/ledger"
	"fundledger/internal/middleware"
	"fundledger/internal/transfer"
)

const maxBodyBytes = 1 << 20

// App carries the dependencies of the HTTP handlers. Bank is nil when sweeps
// go to an external payout service; the wallet routes then answer 404.
type App struct {
	Ledger        *ledger.Ledger
	Bank          *transfer.Bank
	Logger        zerolog.Logger
	FaucetEnabled bool
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": kind, "message": msg},
	})
}

// fail maps a ledger error onto the response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		if code == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	a.error(w, code, kind, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrAlreadyClosed):
		return http.StatusConflict, "already_closed"
	case errors.Is(err, domain.ErrFundClosed):
		return http.StatusConflict, "fund_closed"
	case errors.Is(err, domain.ErrJournal), errors.Is(err, domain.ErrCorruptJournal):
		return http.StatusInternalServerError, "journal"
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, domain.ErrOverflow):
		return http.StatusUnprocessableEntity, "overflow"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_address"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func fundIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fund id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func addressParam(r *http.Request) (domain.Address, error) {
	return domain.ParseAddress(chi.URLParam(r, "address"))
}

func (a *App) caller(r *http.Request) domain.Address {
	return middleware.CallerFromContext(r.Context())
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
