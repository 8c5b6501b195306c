// Standalone mock report endpoint for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/statusreporter run -c example/reporter.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	failRate := flag.Float64("fail-rate", 0.3, "fraction of reports answered with 503")
	stallRate := flag.Float64("stall-rate", 0.1, "fraction of reports never answered")
	flag.Parse()

	fmt.Printf("Mock report endpoint starting on %s\n", *addr)
	fmt.Printf("Rejects %.0f%% and stalls %.0f%% of reports\n", *failRate*100, *stallRate*100)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/report/{service}/{node}/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		roll := rand.Float64()
		switch {
		case roll < *stallRate:
			logger.Warn("stalling report", "service", r.PathValue("service"), "node", r.PathValue("node"))
			<-r.Context().Done()
		case roll < *stallRate+*failRate:
			logger.Warn("rejecting report", "service", r.PathValue("service"), "node", r.PathValue("node"))
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		default:
			logger.Info("report accepted",
				"service", r.PathValue("service"),
				"node", r.PathValue("node"),
				"user_agent", r.UserAgent(),
				"body", string(body),
			)
			w.WriteHeader(http.StatusOK)
		}
	})

	if err := http.ListenAndServe(*addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
