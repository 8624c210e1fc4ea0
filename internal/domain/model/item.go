// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ItemID is the canonical identity of a catalog item.
//
// Catalog ids arrive as JSON numbers from some collaborators and as strings
// from others; every comparison goes through the normalized string form so
// that 603 and "603" are the same movie.
type ItemID string

// NewItemID normalizes v into an ItemID. Supported inputs are strings,
// integer kinds, integral floats and json.Number.
func NewItemID(v any) (ItemID, error) {
	switch x := v.(type) {
	case ItemID:
		return normalizeString(string(x))
	case string:
		return normalizeString(x)
	case int:
		return ItemID(strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return ItemID(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return ItemID(strconv.FormatInt(x, 10)), nil
	case uint:
		return ItemID(strconv.FormatUint(uint64(x), 10)), nil
	case uint32:
		return ItemID(strconv.FormatUint(uint64(x), 10)), nil
	case uint64:
		return ItemID(strconv.FormatUint(x, 10)), nil
	case float64:
		return fromFloat(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return ItemID(strconv.FormatInt(i, 10)), nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidItemID, x.String())
		}
		return fromFloat(f)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidItemID, v)
	}
}

// MustItemID is NewItemID for literals in tests and fixtures.
func MustItemID(v any) ItemID {
	id, err := NewItemID(v)
	if err != nil {
		panic(err)
	}
	return id
}

func normalizeString(s string) (ItemID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidItemID)
	}
	// Numeric strings collapse to their integer form ("0603" -> "603").
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ItemID(strconv.FormatInt(i, 10)), nil
	}
	return ItemID(s), nil
}

func fromFloat(f float64) (ItemID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidItemID, f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ItemID(strconv.FormatInt(int64(f), 10)), nil
	}
	return ItemID(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// String returns the canonical form.
func (id ItemID) String() string { return string(id) }

// IsZero reports whether id is unset.
func (id ItemID) IsZero() bool { return id == "" }

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidItemID)
	}
	var raw any
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	} else {
		raw = json.Number(string(b))
	}
	v, err := NewItemID(raw)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.Format(dateLayout) }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler. Full RFC3339 timestamps are
// truncated to their date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RankedItem is one entry of a personal ranking. Only ID carries identity;
// the rest is display metadata that may be missing or backfilled later.
type RankedItem struct {
	ID          ItemID  `json:"id"`
	Title       string  `json:"title"`
	PosterURL   *string `json:"poster_url"`
	ReleaseDate *Date   `json:"release_date,omitempty"`
	Genres      []int   `json:"genres,omitempty"`
}

// NeedsDetails reports whether release date or genres are still unknown.
func (it RankedItem) NeedsDetails() bool {
	return it.ReleaseDate == nil || it.Genres == nil
}

// Clone returns a deep copy of the item.
func (it RankedItem) Clone() RankedItem {
	out := it
	if it.PosterURL != nil {
		p := *it.PosterURL
		out.PosterURL = &p
	}
	if it.ReleaseDate != nil {
		d := *it.ReleaseDate
		out.ReleaseDate = &d
	}
	if it.Genres != nil {
		out.Genres = append([]int(nil), it.Genres...)
	}
	return out
}

// Details are the lazily fetched display fields of an item.
type Details struct {
	ReleaseDate *Date
	Genres      []int
}

// WithDetails fills missing release date and genres from d. Fields that are
// already known are kept.
func (it RankedItem) WithDetails(d Details) RankedItem {
	out := it.Clone()
	if out.ReleaseDate == nil && d.ReleaseDate != nil {
		rd := *d.ReleaseDate
		out.ReleaseDate = &rd
	}
	if out.Genres == nil && d.Genres != nil {
		out.Genres = append([]int{}, d.Genres...)
	}
	return out
}
