package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

func (a *App) MyRewards(w http.ResponseWriter, r *http.Request) {
	caller := a.caller(r)
	a.json(w, http.StatusOK, balance(caller, a.Ledger.RewardBalance(caller)))
}

func (a *App) RewardsOf(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, balance(addr, a.Ledger.RewardBalance(addr)))
}

func balance(addr domain.Address, amount decimal.Decimal) balanceDTO {
	return balanceDTO{
		Account: addr.String(),
		Balance: amount.String(),
		Ether:   domain.FormatEther(amount),
	}
}
