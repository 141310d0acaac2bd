package handlers

import (
	"net/http"

	"fundledger/internal/domain"
)

func (a *App) Wallet(w http.ResponseWriter, r *http.Request) {
	if a.Bank == nil {
		a.error(w, http.StatusNotFound, "not_available", "wallets are kept by the payout service")
		return
	}
	addr, err := addressParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, balance(addr, a.Bank.BalanceOf(addr)))
}

// Faucet mints development funds into a wallet.
func (a *App) Faucet(w http.ResponseWriter, r *http.Request) {
	if a.Bank == nil || !a.FaucetEnabled {
		a.error(w, http.StatusNotFound, "not_available", "faucet disabled")
		return
	}
	addr, err := addressParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req valueRequest
	if err := decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	value, err := domain.ParseAmount(req.Value)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Bank.Mint(addr, value); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().Str("to", addr.String()).Str("amount", value.String()).Msg("faucet mint")
	a.json(w, http.StatusOK, balance(addr, a.Bank.BalanceOf(addr)))
}
