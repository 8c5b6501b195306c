package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockBehaviour is how the mock endpoint answers a report.
type mockBehaviour string

const (
	behaviourAccept mockBehaviour = "accept"
	behaviourReject mockBehaviour = "reject"
	behaviourStall  mockBehaviour = "stall"
)

// mockState tracks the current behaviour and next change time for a replica.
type mockState struct {
	behaviourIdx int
	nextChangeAt time.Time
	lastReport   json.RawMessage
}

// StartMockReportServer runs a mock status-aggregation endpoint.
//
// Each replica cycles through accepting, rejecting and stalling reports,
// changing every 20-60 seconds. Call this in a goroutine before creating the
// reporter.
func StartMockReportServer(addr string) {
	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
	)
	behaviours := []mockBehaviour{behaviourAccept, behaviourReject, behaviourStall}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/report/{service}/{node}/", func(w http.ResponseWriter, r *http.Request) {
		if _, token, ok := r.BasicAuth(); !ok || token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var report struct {
			ReplicaID string `json:"replica_id"`
		}
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		_ = json.Unmarshal(raw, &report)
		key := r.PathValue("service") + "/" + r.PathValue("node") + "/" + report.ReplicaID

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		state, exists := states[key]
		if !exists {
			// first change in 20-60 seconds
			state = &mockState{
				nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second),
			}
			states[key] = state
		}

		// change behaviour when scheduled time is reached
		if time.Now().After(state.nextChangeAt) {
			old := behaviours[state.behaviourIdx]
			state.behaviourIdx = (state.behaviourIdx + 1) % len(behaviours)
			state.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("behaviour change", "replica", key, "from", old, "to", behaviours[state.behaviourIdx])
		}
		behaviour := behaviours[state.behaviourIdx]
		state.lastReport = raw
		mu.Unlock()

		switch behaviour {
		case behaviourReject:
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		case behaviourStall:
			// hold the connection until the reporter gives up
			<-r.Context().Done()
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	mux.HandleFunc("GET /v1/replicas", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := make(map[string]json.RawMessage, len(states))
		for k, s := range states {
			resp[k] = s.lastReport
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
