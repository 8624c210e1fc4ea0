// Package scoring projects display scores from rank positions.
//
// Scores are never stored. They are recomputed from the current index every
// time a ranking is shown, so any reorder re-derives every score at once.
package scoring

import (
	"math"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/types"
)

// Score bounds of the projection.
const (
	MaxScore = 10.0
	MinScore = 1.0
)

// Project maps a 0-based rank index within a ranking of total items to a
// score between MaxScore (best) and MinScore (worst), rounded to one decimal.
// Rankings of zero or one item score MaxScore.
func Project(index, total int) float64 {
	if total <= 1 {
		return MaxScore
	}
	raw := MaxScore - (MaxScore-MinScore)*float64(index)/float64(total-1)
	return math.Round(raw*10) / 10
}

// Annotate builds the presentation rows for list, rank 1 first.
func Annotate(list model.List) []types.Entry {
	out := make([]types.Entry, len(list))
	for i, it := range list {
		it = it.Clone()
		out[i] = types.Entry{
			Rank:        i + 1,
			ID:          it.ID,
			Title:       it.Title,
			PosterURL:   it.PosterURL,
			ReleaseDate: it.ReleaseDate,
			Genres:      it.Genres,
			Score:       Project(i, len(list)),
		}
	}
	return out
}
