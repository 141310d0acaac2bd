package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrFundClosed        = errors.New("fund closed")
	ErrAlreadyClosed     = errors.New("fund already closed")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrOverflow          = errors.New("amount overflow")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrJournal           = errors.New("journal write failed")
	ErrCorruptJournal    = errors.New("corrupt journal")
)
