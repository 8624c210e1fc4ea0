// Package simulate drives a running cinerank daemon through its HTTP API
// with a scripted viewer whose true preference order is known, then checks
// that the ranking the daemon built matches it.
package simulate

import (
	"time"

	"github.com/okian/cinerank/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Catalog    string        // Catalog file; empty uses the built-in catalog
	Seed       uint64        // Seed for the insertion order
	Timeout    time.Duration // HTTP request timeout
	RPS        float64       // Request rate limit; zero means unlimited
	AccountID  string        // Sign in as this account before rating, if set
	Credential string        // Credential for AccountID
	Verbose    bool          // Log every comparison
}

// Stats holds simulation statistics.
type Stats struct {
	Movies      int
	Comparisons int
	MaxSteps    int
	Reranked    int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

// session mirrors the comparison view returned by the API.
type session struct {
	ID        string            `json:"id"`
	State     string            `json:"state"`
	Candidate model.RankedItem  `json:"candidate"`
	Target    *model.RankedItem `json:"target"`
	Steps     int               `json:"steps"`
	Remaining int               `json:"remaining"`
	Placement *struct {
		Rank  int     `json:"rank"`
		Score float64 `json:"score"`
	} `json:"placement"`
}

// entry mirrors a ranking row returned by the API.
type entry struct {
	Rank  int          `json:"rank"`
	ID    model.ItemID `json:"id"`
	Title string       `json:"title"`
	Score float64      `json:"score"`
}
