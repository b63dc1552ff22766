// Package bus carries the durable event channels: the inbound signals
// topic the dispatcher consumes and the outbound orders topic the
// execution engine publishes to.
package bus

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"tradepool/internal/apperr"
	"tradepool/internal/models"
)

// Signal kinds.
const (
	SignalEntry = "ENTRY"
	SignalExit  = "EXIT"
)

// Signal instructs entry into or exit from a position for one
// strategy/ticker. It is the JSON payload on the signals topic.
type Signal struct {
	Strategy  string          `json:"strategy"`
	Ticker    string          `json:"ticker"`
	Quantity  decimal.Decimal `json:"quantity"`
	Action    string          `json:"action"`
	Type      string          `json:"type"`
	OrderType string          `json:"order_type"`

	FillType string           `json:"fill_type,omitempty"`
	Position string           `json:"position,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	SL       *decimal.Decimal `json:"sl,omitempty"`
	TP       *decimal.Decimal `json:"tp,omitempty"`
}

// DecodeSignal parses and validates a signals-topic payload. Validation
// fails closed: a signal missing a conditionally required field is
// rejected at ingestion, never passed on to a handler.
func DecodeSignal(raw []byte) (Signal, error) {
	var sig Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return Signal{}, apperr.Because(apperr.ErrValidation, err, "undecodable signal payload")
	}
	sig.Strategy = strings.TrimSpace(sig.Strategy)
	sig.Ticker = strings.TrimSpace(sig.Ticker)
	sig.Action = strings.ToUpper(strings.TrimSpace(sig.Action))
	sig.Type = strings.ToUpper(strings.TrimSpace(sig.Type))
	sig.OrderType = strings.ToUpper(strings.TrimSpace(sig.OrderType))
	if err := sig.Validate(); err != nil {
		return Signal{}, err
	}
	return sig, nil
}

func (s Signal) Validate() error {
	if s.Strategy == "" {
		return apperr.New(apperr.ErrValidation, "signal strategy is required")
	}
	if s.Ticker == "" {
		return apperr.New(apperr.ErrValidation, "signal ticker is required")
	}
	if !s.Quantity.IsPositive() {
		return apperr.New(apperr.ErrValidation, "signal quantity must be positive, got %s", s.Quantity)
	}
	switch s.Action {
	case models.ActionBuy, models.ActionSell:
	default:
		return apperr.New(apperr.ErrValidation, "unknown signal action %q", s.Action)
	}
	switch s.Type {
	case SignalEntry, SignalExit:
	default:
		return apperr.New(apperr.ErrValidation, "unknown signal type %q", s.Type)
	}
	if s.Type == SignalExit && s.Position == "" {
		return apperr.New(apperr.ErrValidation, "position is required for exit signals")
	}
	if s.OrderType == models.ExecLimit && s.Price == nil {
		return apperr.New(apperr.ErrValidation, "price is required for limit orders")
	}
	if s.SL != nil && !s.SL.IsPositive() {
		return apperr.New(apperr.ErrValidation, "sl fraction must be positive, got %s", s.SL)
	}
	if s.TP != nil && !s.TP.IsPositive() {
		return apperr.New(apperr.ErrValidation, "tp fraction must be positive, got %s", s.TP)
	}
	return nil
}
