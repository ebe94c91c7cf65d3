package kernel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// DebugServer exposes the kernel's internal state over HTTP, generalized
// from the teacher's HTTPServer (utils/http_server.go) registry-of-
// handlers-by-message-type into a registry-of-handlers-by-path, since
// this package has no wire protocol of its own to dispatch on — only
// process and frame-table state to inspect.
type DebugServer struct {
	k    *Kernel
	addr string
	mux  *http.ServeMux
	srv  *http.Server
}

// NewDebugServer builds (but does not start) a debug HTTP server bound
// to addr, with /health, /stats/{pid} and /frames registered.
func NewDebugServer(k *Kernel, addr string) *DebugServer {
	d := &DebugServer{k: k, addr: addr, mux: http.NewServeMux()}
	d.mux.HandleFunc("/health", d.handleHealth)
	d.mux.HandleFunc("/stats/", d.handleStats)
	d.mux.HandleFunc("/frames", d.handleFrames)
	return d
}

// ListenAndServe starts the server, blocking until it stops or errors —
// same calling convention as the teacher's HTTPServer.Start.
func (d *DebugServer) ListenAndServe() error {
	d.srv = &http.Server{Addr: d.addr, Handler: d.mux}
	d.k.log.Info("debug HTTP server listening", "address", d.addr)
	return d.srv.ListenAndServe()
}

func (d *DebugServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"frame_capacity": d.k.Frames.Capacity(),
		"swap_slots":    d.k.Swap.Slots(),
	})
}

// handleStats serves /stats/{pid}: the page-fault/swap/syscall counters
// for one process plus whether its SPT is currently empty.
func (d *DebugServer) handleStats(w http.ResponseWriter, r *http.Request) {
	pidStr := r.URL.Path[len("/stats/"):]
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad pid %q", pidStr), http.StatusBadRequest)
		return
	}
	p, ok := d.k.Process(pid)
	if !ok {
		http.Error(w, fmt.Sprintf("no such process %d", pid), http.StatusNotFound)
		return
	}
	stats := d.k.Metrics.Snapshot(pid)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"pid":     pid,
		"metrics": stats,
		"empty":   p.SPT.Empty(),
	})
}

// handleFrames serves /frames: every currently-resident (pid, upage)
// pair, for P2 (Frame/SPT bijection) spot checks outside the test suite.
func (d *DebugServer) handleFrames(w http.ResponseWriter, r *http.Request) {
	resident := d.k.Frames.Resident()
	type row struct {
		Kpage uint64 `json:"kpage"`
		Upage uint64 `json:"upage"`
		PID   int    `json:"pid"`
	}
	rows := make([]row, len(resident))
	for i, e := range resident {
		rows[i] = row{Kpage: uint64(e.Kpage), Upage: uint64(e.Upage), PID: e.Proc.PID}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
