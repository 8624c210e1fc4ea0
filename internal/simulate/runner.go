package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
)

// Run rates every catalog movie against a daemon with an empty ranking and
// verifies the result.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.GetOrDiscard().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	catalog, err := LoadCatalog(config.Catalog)
	if err != nil {
		return nil, err
	}
	stats.Movies = len(catalog.Movies)

	log.Info(ctx, "starting cinerank simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("movies", stats.Movies),
		logger.Uint64("seed", config.Seed),
		logger.Duration("timeout", config.Timeout))

	c := newClient(config.BaseURL, config.Timeout, config.RPS)

	// Step 1: Check service health
	if err := c.health(ctx); err != nil {
		return nil, err
	}

	// Step 2: Sign in
	if config.AccountID != "" {
		if err := c.signIn(ctx, config.AccountID, config.Credential); err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
		log.Info(ctx, "signed in", logger.String("account", config.AccountID))
	}

	// Step 3: Start from nothing
	current, err := c.ranking(ctx)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		return nil, fmt.Errorf("%w: %d entries", ErrNotEmpty, len(current))
	}

	// Step 4: Rate every movie in shuffled order
	r := rand.New(rand.NewPCG(config.Seed, config.Seed))
	for _, i := range r.Perm(len(catalog.Movies)) {
		if err := insert(ctx, c, catalog, catalog.Movies[i], stats, config.Verbose); err != nil {
			return nil, err
		}
	}

	// Step 5: Verify the ranking
	if err := verifyRanking(ctx, c, catalog); err != nil {
		return nil, err
	}

	// Step 6: Drag the worst movie to the top and take it back
	if n := len(catalog.Movies); n > 1 {
		moved, err := c.move(ctx, n-1, 0)
		if err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
		if moved[0].ID != catalog.Movies[n-1].ID {
			return nil, fmt.Errorf("%w: move put %s on top", ErrOrderMismatch, moved[0].ID)
		}
		if _, err := c.undo(ctx); err != nil {
			return nil, fmt.Errorf("undo: %w", err)
		}
		if err := verifyRanking(ctx, c, catalog); err != nil {
			return nil, fmt.Errorf("after undo: %w", err)
		}
	}

	// Step 7: Re-rank a movie; an honest viewer puts it back where it was
	middle := catalog.Movies[len(catalog.Movies)/2]
	if err := insert(ctx, c, catalog, middle, stats, config.Verbose); err != nil {
		return nil, err
	}
	stats.Reranked++
	if err := verifyRanking(ctx, c, catalog); err != nil {
		return nil, fmt.Errorf("after re-rank: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// insert places item by answering every comparison from the catalog order.
func insert(ctx context.Context, c *client, catalog *Catalog, item model.RankedItem, stats *Stats, verbose bool) error {
	s, err := c.begin(ctx, item)
	if err != nil {
		return fmt.Errorf("begin %s: %w", item.ID, err)
	}
	budget := s.Remaining

	for s.Placement == nil {
		choice := answer(catalog, s)
		if verbose {
			target := ""
			if s.Target != nil {
				target = s.Target.Title
			}
			logger.GetOrDiscard().Named("simulate").Debug(ctx, "comparison",
				logger.String("candidate", s.Candidate.Title),
				logger.String("target", target),
				logger.String("choice", choice))
		}
		if s, err = c.choose(ctx, s.ID, choice); err != nil {
			return fmt.Errorf("choose for %s: %w", item.ID, err)
		}
	}

	stats.Comparisons += s.Steps
	stats.MaxSteps = max(stats.MaxSteps, s.Steps)
	if s.Steps > budget {
		return fmt.Errorf("%w: %s took %d, at most %d", ErrTooManySteps, item.ID, s.Steps, budget)
	}
	return nil
}

func answer(catalog *Catalog, s session) string {
	if s.State == "baseline" || s.Target == nil {
		return "baseline"
	}
	if catalog.prefers(s.Candidate.ID, s.Target.ID) {
		return "candidate"
	}
	return "existing"
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perMovie float64
	if stats.Movies > 0 {
		perMovie = float64(stats.Comparisons) / float64(stats.Movies+stats.Reranked)
	}
	log.Info(ctx, "final statistics",
		logger.Int("movies", stats.Movies),
		logger.Int("comparisons", stats.Comparisons),
		logger.Int("maxSteps", stats.MaxSteps),
		logger.Int("reranked", stats.Reranked),
		logger.Float64("comparisonsPerMovie", perMovie),
		logger.Duration("duration", stats.Duration))
}
