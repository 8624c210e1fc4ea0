package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/cinerank/internal/simulate"
	"github.com/okian/cinerank/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		catalog    = flag.String("catalog", "", "YAML catalog listing movies best first (default: built-in catalog)")
		seed       = flag.Uint64("seed", 1, "Seed for the insertion order")
		rps        = flag.Float64("rps", 0, "Request rate limit, 0 for unlimited")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		accountID  = flag.String("account", "", "Sign in as this account before rating")
		credential = flag.String("credential", "", "Credential for -account")
		verbose    = flag.Bool("verbose", false, "Log every comparison")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:    *baseURL,
		Catalog:    *catalog,
		Seed:       *seed,
		Timeout:    *timeout,
		RPS:        *rps,
		AccountID:  *accountID,
		Credential: *credential,
		Verbose:    *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
