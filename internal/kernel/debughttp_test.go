package kernel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestDebugServerHealth(t *testing.T) {
	k := testKernel(t, 4, 8)
	d := NewDebugServer(k, "127.0.0.1:0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	d.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestDebugServerStatsUnknownPID(t *testing.T) {
	k := testKernel(t, 4, 8)
	d := NewDebugServer(k, "127.0.0.1:0")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats/999", nil)
	d.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDebugServerStatsKnownPID(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := k.NewProcessRecord(NewFakePageDirectory())
	k.Metrics.PageFault(p.PID)

	d := NewDebugServer(k, "127.0.0.1:0")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats/"+strconv.Itoa(p.PID), nil)
	d.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		PID     int  `json:"pid"`
		Empty   bool `json:"empty"`
		Metrics struct {
			PageFaults uint64 `json:"PageFaults"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.PID != p.PID || !body.Empty || body.Metrics.PageFaults != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestDebugServerFrames(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := k.NewProcessRecord(NewFakePageDirectory())
	if err := p.SPT.AllocZero(0x1000, true); err != nil {
		t.Fatalf("AllocZero: %v", err)
	}
	if err := p.SPT.ForceLoad(0x1000); err != nil {
		t.Fatalf("ForceLoad: %v", err)
	}

	d := NewDebugServer(k, "127.0.0.1:0")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/frames", nil)
	d.mux.ServeHTTP(rec, req)

	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("frames rows = %d, want 1", len(rows))
	}
}

