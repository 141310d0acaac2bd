package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	stats := a.Ledger.Stats()
	a.json(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"funds":        stats.Funds,
		"open_funds":   stats.OpenFunds,
		"journal_seq":  stats.JournalSeq,
		"journal_head": stats.JournalHead,
	})
}
