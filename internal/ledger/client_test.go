package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fadebot-go/internal/signal"
)

func TestClientReportExecutionWire(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"tradeId":42}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	ack, err := client.ReportExecution(context.Background(), ExecutionReport{
		SignalID:      "sig-1",
		Result:        true,
		TimestampMs:   1700000000000,
		Direction:     signal.Call,
		Amount:        10,
		InstrumentKey: "EURUSD_OTC",
		EntryPrice:    1.1234,
	})
	if err != nil {
		t.Fatalf("ReportExecution returned error: %v", err)
	}
	if !ack.Success || ack.TradeID != 42 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	var wire map[string]any
	if err := json.Unmarshal(captured, &wire); err != nil {
		t.Fatalf("captured body is not JSON: %v", err)
	}
	if wire["type"] != TypeTradeExecuted {
		t.Fatalf("expected TRADE_EXECUTED envelope, got %v", wire["type"])
	}
	for _, key := range []string{"signalId", "result", "timestampMs", "direction", "amount", "instrumentKey", "entryPrice"} {
		if _, ok := wire[key]; !ok {
			t.Fatalf("wire missing %s: %s", key, captured)
		}
	}
	if _, ok := wire["error"]; ok {
		t.Fatalf("empty error should be omitted: %s", captured)
	}
}

func TestClientFinalizeTradeWire(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.FinalizeTrade(context.Background(), FinalizeReport{
		TradeID:   42,
		SignalID:  "sig-1",
		ExitPrice: 1.13,
		Result:    signal.Win,
		Profit:    9.2,
	})
	if err != nil {
		t.Fatalf("FinalizeTrade returned error: %v", err)
	}
	body := string(captured)
	if !strings.Contains(body, `"type":"FINALIZE_TRADE"`) {
		t.Fatalf("expected FINALIZE_TRADE envelope: %s", body)
	}
	if !strings.Contains(body, `"tradeId":42`) || !strings.Contains(body, `"result":"WIN"`) {
		t.Fatalf("unexpected wire body: %s", body)
	}
}

func TestClientBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	if _, err := client.ReportExecution(context.Background(), ExecutionReport{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
	if err := client.FinalizeTrade(context.Background(), FinalizeReport{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}
