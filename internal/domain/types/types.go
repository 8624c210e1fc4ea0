// Package types contains common types used across the application
package types

import "github.com/okian/cinerank/internal/domain/model"

// Entry is one row of a ranking as shown to the user: the item's display
// fields plus its 1-based rank and the score projected from that rank.
type Entry struct {
	Rank        int          `json:"rank"`
	ID          model.ItemID `json:"id"`
	Title       string       `json:"title"`
	PosterURL   *string      `json:"poster_url"`
	ReleaseDate *model.Date  `json:"release_date,omitempty"`
	Genres      []int        `json:"genres,omitempty"`
	Score       float64      `json:"score"`
}

// Comparison is the presentation view of an open comparison session.
type Comparison struct {
	ID        string            `json:"id"`
	State     string            `json:"state"`
	Candidate model.RankedItem  `json:"candidate"`
	Target    *model.RankedItem `json:"target,omitempty"`
	Steps     int               `json:"steps"`
	Remaining int               `json:"remaining"`
	CanGoBack bool              `json:"can_go_back"`
	// Placement is set once the candidate has been inserted.
	Placement *Placement `json:"placement,omitempty"`
}

// Placement is where a resolved candidate landed.
type Placement struct {
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}
