package logger

import (
	"testing"

	"tradepool/internal/config"
)

func TestNew_Encodings(t *testing.T) {
	for _, encoding := range []string{"console", "json", "JSON", ""} {
		l, err := New(config.LogConfig{Level: "info", Encoding: encoding})
		if err != nil {
			t.Fatalf("encoding=%q err=%v", encoding, err)
		}
		if l == nil {
			t.Fatalf("encoding=%q returned nil logger", encoding)
		}
	}
}

func TestNew_BadLevelFallsBack(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud", Encoding: "console"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if l == nil {
		t.Fatalf("returned nil logger")
	}
}

func TestNew_Sampling(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "warn", Encoding: "json", Sampling: true}); err != nil {
		t.Fatalf("err=%v", err)
	}
}
