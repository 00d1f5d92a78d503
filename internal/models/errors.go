package models

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below match them.
var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrForecastFailed   = errors.New("forecast failed")
)

// InvalidSelectionError means a widget holds a value outside its fixed set.
type InvalidSelectionError struct {
	Field string
	Value interface{}
}

// NewInvalidSelectionError creates an InvalidSelectionError for the given field.
func NewInvalidSelectionError(field string, value interface{}) error {
	return &InvalidSelectionError{Field: field, Value: value}
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection: %s=%v", e.Field, e.Value)
}

func (e *InvalidSelectionError) Is(target error) bool {
	return target == ErrInvalidSelection
}

// DataUnavailableError means no price series could be retrieved for a ticker.
type DataUnavailableError struct {
	Symbol string
	Err    error
}

// NewDataUnavailableError wraps cause as a DataUnavailableError for symbol.
func NewDataUnavailableError(symbol string, cause error) error {
	return &DataUnavailableError{Symbol: symbol, Err: cause}
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no data available for %s", e.Symbol)
	}
	return fmt.Sprintf("no data available for %s: %v", e.Symbol, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

// ForecastFailedError means the model could not be fitted to a series.
type ForecastFailedError struct {
	Symbol string
	Reason string
	Err    error
}

// NewForecastFailedError creates a ForecastFailedError. cause may be nil.
func NewForecastFailedError(symbol, reason string, cause error) error {
	return &ForecastFailedError{Symbol: symbol, Reason: reason, Err: cause}
}

func (e *ForecastFailedError) Error() string {
	msg := fmt.Sprintf("forecast failed for %s: %s", e.Symbol, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ForecastFailedError) Unwrap() error { return e.Err }

func (e *ForecastFailedError) Is(target error) bool {
	return target == ErrForecastFailed
}
