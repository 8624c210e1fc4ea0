package simulate

import "os"

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`cinerank simulation
===================

Rates a catalog of movies against a running cinerank daemon, answering every
comparison from the catalog order, and checks the ranking that comes out.
The daemon's active ranking must be empty.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -catalog string
        YAML catalog listing movies best first (default: built-in catalog)
  -seed uint
        Seed for the insertion order (default 1)
  -rps float
        Request rate limit, 0 for unlimited (default 0)
  -timeout duration
        HTTP request timeout (default 10s)
  -account string
        Sign in as this account before rating
  -credential string
        Credential for -account
  -verbose
        Log every comparison
  -help
        Show this help message

Examples:
  # Rate the built-in catalog
  go run ./cmd/simulate

  # Rate a custom catalog as a signed-in account, two requests per second
  go run ./cmd/simulate -catalog movies.yaml -account u1 -credential tok -rps 2
`)
}
