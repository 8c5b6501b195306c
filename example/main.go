package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/statusreporter"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockReportServer(":9999")
	time.Sleep(100 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// three replicas of one node, each with its own loop and timers
	var reporters []*statusreporter.Reporter
	for _, replica := range []string{"replica-a", "replica-b", "replica-c"} {
		r, err := statusreporter.New(
			statusreporter.WithEndpoint("http://localhost:9999/v1"),
			statusreporter.WithAuthToken("demo-token"),
			statusreporter.WithIdentity("checkout", "api", replica),
			statusreporter.WithInterval(5*time.Second),
			statusreporter.WithStartupDelay(time.Second),
			statusreporter.WithRequestTimeout(2*time.Second),
			statusreporter.WithLogger(logger.With("replica", replica)),
			statusreporter.WithAttemptCallback(func(res statusreporter.AttemptResult) {
				fmt.Printf("  %-10s %-12s next in %s\n", replica, res.Outcome, res.NextDelay)
			}),
		)
		if err != nil {
			slog.Error("failed to create reporter", "error", err)
			os.Exit(1)
		}
		reporters = append(reporters, r)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Status Reporter Demo                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   3 replicas reporting to a mock endpoint on :9999    ║")
	fmt.Println("  ║   The endpoint accepts, rejects and stalls in turn    ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Last reports: http://localhost:9999/v1/replicas     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{}, len(reporters))
	for _, r := range reporters {
		go func() {
			r.Run(ctx)
			done <- struct{}{}
		}()
	}
	for range reporters {
		<-done
	}
}
