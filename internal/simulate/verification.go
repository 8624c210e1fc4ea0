package simulate

import (
	"context"
	"fmt"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/scoring"
)

func verifyRanking(ctx context.Context, c *client, catalog *Catalog) error {
	entries, err := c.ranking(ctx)
	if err != nil {
		return err
	}
	if err := verifyOrder(entries, catalog.ids()); err != nil {
		return err
	}
	return verifyScores(entries)
}

// verifyOrder checks that entries list exactly want, in order.
func verifyOrder(entries []entry, want []model.ItemID) error {
	if len(entries) != len(want) {
		return fmt.Errorf("%w: %d entries, want %d", ErrOrderMismatch, len(entries), len(want))
	}
	for i, e := range entries {
		if e.ID != want[i] {
			return fmt.Errorf("%w: rank %d is %s, want %s", ErrOrderMismatch, i+1, e.ID, want[i])
		}
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrOrderMismatch, i, e.Rank)
		}
	}
	return nil
}

// verifyScores checks that scores never rise down the ranking and span the
// full scale.
func verifyScores(entries []entry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].Score > entries[i-1].Score {
			return fmt.Errorf("%w: rank %d scores %.1f above rank %d at %.1f",
				ErrScoreOrder, i+1, entries[i].Score, i, entries[i-1].Score)
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if top := entries[0].Score; top != scoring.MaxScore {
		return fmt.Errorf("%w: top score is %.1f", ErrScoreOrder, top)
	}
	if bottom := entries[len(entries)-1].Score; len(entries) > 1 && bottom != scoring.MinScore {
		return fmt.Errorf("%w: bottom score is %.1f", ErrScoreOrder, bottom)
	}
	return nil
}
