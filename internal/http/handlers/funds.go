package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
	"fundledger/internal/ledger"
)

type createFundRequest struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Receiver    string `json:"receiver"`
	Description string `json:"description"`
	MetadataRef string `json:"metadata_ref"`
}

type valueRequest struct {
	Value string `json:"value"`
}

func (a *App) ListFunds(w http.ResponseWriter, r *http.Request) {
	funds := a.Ledger.ListFunds()
	items := make([]fundDTO, 0, len(funds))
	for _, f := range funds {
		items = append(items, toFundDTO(f))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetFund(w http.ResponseWriter, r *http.Request) {
	id, err := fundIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	fund, err := a.Ledger.GetFund(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "tuple" {
		a.json(w, http.StatusOK, fundTuple(fund))
		return
	}
	a.json(w, http.StatusOK, toFundDTO(fund))
}

func (a *App) CreateFund(w http.ResponseWriter, r *http.Request) {
	var req createFundRequest
	if err := decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	caller := a.caller(r)
	owner := caller
	if req.Owner != "" {
		parsed, err := domain.ParseAddress(req.Owner)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		owner = parsed
	}
	var receiver domain.Address
	if req.Receiver != "" {
		parsed, err := domain.ParseAddress(req.Receiver)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		receiver = parsed
	}

	id, err := a.Ledger.CreateFund(r.Context(), ledger.Call{Caller: caller}, ledger.CreateFundRequest{
		Name:        req.Name,
		Owner:       owner,
		Receiver:    receiver,
		Description: req.Description,
		MetadataRef: req.MetadataRef,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	fund, err := a.Ledger.GetFund(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/funds/"+uintString(id))
	a.json(w, http.StatusCreated, map[string]any{"id": id, "fund": toFundDTO(fund)})
}

func (a *App) Donate(w http.ResponseWriter, r *http.Request) {
	id, err := fundIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
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
	caller := a.caller(r)
	if err := a.Ledger.Donate(r.Context(), ledger.Call{Caller: caller, Value: value}, id); err != nil {
		a.fail(w, r, err)
		return
	}
	fund, err := a.Ledger.GetFund(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"fund":           toFundDTO(fund),
		"reward_balance": a.Ledger.RewardBalance(caller).String(),
	})
}

func (a *App) CloseFund(w http.ResponseWriter, r *http.Request) {
	id, err := fundIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	receipt, err := a.Ledger.CloseFund(r.Context(), ledger.Call{Caller: a.caller(r), Value: decimal.Zero}, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	fund, err := a.Ledger.GetFund(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"fund":    toFundDTO(fund),
		"receipt": toReceiptDTO(receipt),
	})
}
