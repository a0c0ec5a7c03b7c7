package broker

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"fadebot-go/internal/signal"
)

func TestPaperExecuteTradeLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	p := NewPaper(logger)
	if err := p.ExecuteTrade(context.Background(), signal.Call, 10); err != nil {
		t.Fatalf("ExecuteTrade returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "CALL") {
		t.Fatalf("log does not contain direction: %s", out)
	}
}

func TestPaperExecuteTradeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPaper(zerolog.Nop())
	if err := p.ExecuteTrade(ctx, signal.Put, 10); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}
