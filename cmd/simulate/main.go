package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/adcraft/internal/simulate"
	"github.com/okian/adcraft/pkg/logger"
)

const (
	defaultCount = 3
	defaultWait  = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		campaign = flag.String("campaign", "", "Campaign id whose winning ad seeds the jobs")
		landing  = flag.String("landing", "", "Landing page URL (default: the winner's link)")
		format   = flag.String("format", "feed", "feed, story, reel or all")
		count    = flag.Int("count", defaultCount, "Variations per job")
		jobs     = flag.Int("jobs", 1, "Number of jobs to create")
		workers  = flag.Int("workers", simulate.DefaultWorkers, "Concurrent requests")
		play     = flag.Bool("play", false, "Post completion callbacks as the automation target")
		token    = flag.String("token", "", "X-Callback-Token for -play")
		account  = flag.String("account", "", "X-Account-ID for every request")
		timeout  = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		wait     = flag.Duration("wait", defaultWait, "How long to wait for jobs to finish")
		verbose  = flag.Bool("verbose", false, "Log every job")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *campaign == "" {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *wait)
	defer cancel()

	stats, err := simulate.Run(ctx, &simulate.Config{
		BaseURL:        *baseURL,
		AccountID:      *account,
		CampaignID:     *campaign,
		LandingPageURL: *landing,
		Format:         *format,
		Count:          *count,
		Jobs:           *jobs,
		Workers:        *workers,
		PlayAutomation: *play,
		CallbackToken:  *token,
		Timeout:        *timeout,
		Verbose:        *verbose,
	})
	if err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if stats.JobsFailed > 0 || stats.JobsPending > 0 {
		os.Exit(2)
	}
}
