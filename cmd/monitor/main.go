// Command monitor is the operator CLI for the pipeline's health surface.
// `monitor` is the one implemented subcommand; `load-test` and
// `verify-capacity` are recognized but stubbed, since the performance-
// monitoring sidecar that would back them is out of scope.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "monitor":
		runMonitor(os.Args[2:])
	case "load-test", "verify-capacity":
		fmt.Fprintf(os.Stderr, "%s: not implemented — see scope notes (performance-monitoring sidecar is out of scope)\n", os.Args[1])
		os.Exit(1)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: monitor <monitor|load-test|verify-capacity> [flags]")
}

type healthResponse struct {
	Status string `json:"status"`
}

// runMonitor polls the service's /healthz endpoint on a fixed cadence and
// prints one status line per tick until interrupted or the target is
// unreachable past a small failure budget.
func runMonitor(args []string) {
	target := "http://localhost:8080/healthz"
	interval := 5 * time.Second
	maxFailures := 3

	for _, arg := range args {
		switch {
		case len(arg) > 9 && arg[:9] == "--target=":
			target = arg[9:]
		}
	}

	client := &http.Client{Timeout: 3 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		status, err := poll(client, target)
		if err != nil {
			consecutiveFailures++
			fmt.Printf("%s  UNREACHABLE  %v (failure %d/%d)\n", time.Now().Format(time.RFC3339), err, consecutiveFailures, maxFailures)
			if consecutiveFailures >= maxFailures {
				fmt.Fprintln(os.Stderr, "monitor: target unreachable past failure budget")
				os.Exit(1)
			}
		} else {
			consecutiveFailures = 0
			fmt.Printf("%s  %s\n", time.Now().Format(time.RFC3339), status)
		}
		<-ticker.C
	}
}

func poll(client *http.Client, target string) (string, error) {
	resp, err := client.Get(target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", err
	}
	return health.Status, nil
}
