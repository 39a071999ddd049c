package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`adcraft simulator
=================

Creates creative jobs against a running adcraft service and waits until they
finish. With -play it also stands in for the automation target and posts a
completion callback for every job.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -campaign string
        Campaign id whose winning ad seeds the jobs (required)
  -landing string
        Landing page URL (default: the winner's link)
  -format string
        feed, story, reel or all (default "feed")
  -count int
        Variations per job (default 3)
  -jobs int
        Number of jobs to create (default 1)
  -workers int
        Concurrent requests (default 4)
  -play
        Post completion callbacks as the automation target
  -token string
        X-Callback-Token for -play
  -account string
        X-Account-ID for every request
  -timeout duration
        HTTP request timeout (default 30s)
  -wait duration
        How long to wait for jobs to finish (default 10m)
  -verbose
        Log every job
  -help
        Show this help message

Examples:
  # Round trip without any automation target
  go run ./cmd/simulate -campaign 120210 -format all -count 2 -play

  # Ten jobs against the local pipeline
  go run ./cmd/simulate -campaign 120210 -jobs 10 -verbose
`)
}
