package bus

import (
	"errors"
	"testing"

	"tradepool/internal/apperr"
	"tradepool/internal/models"
)

func TestDecodeSignal_Entry(t *testing.T) {
	raw := []byte(`{"strategy":"momentum","ticker":"RELIANCE","quantity":"10","action":"buy","type":"entry","order_type":"market","sl":"0.02","tp":"0.04"}`)
	sig, err := DecodeSignal(raw)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if sig.Action != models.ActionBuy || sig.Type != SignalEntry || sig.OrderType != models.ExecMarket {
		t.Fatalf("normalization failed: %+v", sig)
	}
	if sig.SL == nil || sig.TP == nil {
		t.Fatalf("sl/tp dropped: %+v", sig)
	}
}

func TestDecodeSignal_TrimsWhitespace(t *testing.T) {
	raw := []byte(`{"strategy":" momentum ","ticker":" RELIANCE ","quantity":"1","action":" sell ","type":"EXIT","position":"LONG","order_type":"MARKET"}`)
	sig, err := DecodeSignal(raw)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if sig.Strategy != "momentum" || sig.Ticker != "RELIANCE" || sig.Action != models.ActionSell {
		t.Fatalf("trim failed: %+v", sig)
	}
}

func TestDecodeSignal_Invalid(t *testing.T) {
	cases := map[string]string{
		"garbage":          `{not json`,
		"missing strategy": `{"ticker":"X","quantity":"1","action":"BUY","type":"ENTRY","order_type":"MARKET"}`,
		"missing ticker":   `{"strategy":"s","quantity":"1","action":"BUY","type":"ENTRY","order_type":"MARKET"}`,
		"zero quantity":    `{"strategy":"s","ticker":"X","quantity":"0","action":"BUY","type":"ENTRY","order_type":"MARKET"}`,
		"unknown action":   `{"strategy":"s","ticker":"X","quantity":"1","action":"HOLD","type":"ENTRY","order_type":"MARKET"}`,
		"unknown type":     `{"strategy":"s","ticker":"X","quantity":"1","action":"BUY","type":"REBALANCE","order_type":"MARKET"}`,
		"exit no position": `{"strategy":"s","ticker":"X","quantity":"1","action":"SELL","type":"EXIT","order_type":"MARKET"}`,
		"limit no price":   `{"strategy":"s","ticker":"X","quantity":"1","action":"BUY","type":"ENTRY","order_type":"LIMIT"}`,
		"negative sl":      `{"strategy":"s","ticker":"X","quantity":"1","action":"BUY","type":"ENTRY","order_type":"MARKET","sl":"-0.02"}`,
	}
	for name, raw := range cases {
		if _, err := DecodeSignal([]byte(raw)); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: err=%v want validation", name, err)
		}
	}
}

func TestDecodeSignal_LimitWithPrice(t *testing.T) {
	raw := []byte(`{"strategy":"s","ticker":"X","quantity":"1","action":"BUY","type":"ENTRY","order_type":"LIMIT","price":"99.50"}`)
	if _, err := DecodeSignal(raw); err != nil {
		t.Fatalf("err=%v", err)
	}
}
