package models

import (
	"errors"
	"fmt"
)

var ErrUnauthorized = errors.New("webhook passphrase mismatch")

// ValidationError — битый / неполный / вне диапазона входной сигнал.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SizingError — размер после округления ниже торгуемого минимума.
type SizingError struct {
	Reason string
}

func (e *SizingError) Error() string { return "sizing: " + e.Reason }

func NewSizingError(format string, args ...any) *SizingError {
	return &SizingError{Reason: fmt.Sprintf(format, args...)}
}

// ExchangeError — любая ошибка биржи: сеть, авторизация, отказ в ордере.
type ExchangeError struct {
	Op         string
	HTTPStatus int
	Code       string
	Msg        string
	Err        error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.HTTPStatus/100 != 2 && e.HTTPStatus != 0:
		return fmt.Sprintf("%s http %d: code=%s msg=%s", e.Op, e.HTTPStatus, e.Code, e.Msg)
	default:
		return fmt.Sprintf("%s okx error: code=%s msg=%s", e.Op, e.Code, e.Msg)
	}
}

func (e *ExchangeError) Unwrap() error { return e.Err }
