package domain

import "errors"

var (
	// ErrBankEmpty is returned when the question bank holds no records.
	ErrBankEmpty = errors.New("question bank is empty")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
)
