package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	repository "github.com/okian/cinerank/internal/adapters/repository"
	"github.com/okian/cinerank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ranking(ids ...string) model.List {
	out := make(model.List, len(ids))
	for i, id := range ids {
		out[i] = model.RankedItem{ID: model.ItemID(id), Title: "Movie " + id}
	}
	return out
}

// cacheContract runs the behaviour every Cache implementation must share.
func cacheContract(t *testing.T, name string, open func(t *testing.T) repository.Cache) {
	Convey("Given a "+name, t, func() {
		ctx := context.Background()
		c := open(t)
		Reset(func() { _ = c.Close() })

		Convey("When a bucket was never written", func() {
			list, ok, err := c.Load(ctx, model.GuestBucket)

			Convey("Then it loads as an empty list", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(list, ShouldBeEmpty)
			})
		})

		Convey("When a list is saved", func() {
			poster := "https://img/603.jpg"
			date, _ := model.ParseDate("1999-03-31")
			saved := model.List{
				{ID: "603", Title: "The Matrix", PosterURL: &poster, ReleaseDate: &date, Genres: []int{28, 878}},
				{ID: "680", Title: "Pulp Fiction"},
			}
			So(c.Save(ctx, model.GuestBucket, saved), ShouldBeNil)

			Convey("Then it loads back in order with its metadata", func() {
				list, ok, err := c.Load(ctx, model.GuestBucket)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(list.IDs(), ShouldResemble, []model.ItemID{"603", "680"})
				So(*list[0].PosterURL, ShouldEqual, poster)
				So(list[0].ReleaseDate.String(), ShouldEqual, "1999-03-31")
				So(list[0].Genres, ShouldResemble, []int{28, 878})
				So(list[1].PosterURL, ShouldBeNil)
			})

			Convey("And the caller's slice is not retained", func() {
				saved[0].Title = "changed"
				list, _, _ := c.Load(ctx, model.GuestBucket)
				So(list[0].Title, ShouldEqual, "The Matrix")
			})

			Convey("And buckets are isolated", func() {
				list, ok, err := c.Load(ctx, model.AccountBucket("u1"))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(list, ShouldBeEmpty)
			})

			Convey("And a later save replaces the whole list", func() {
				So(c.Save(ctx, model.GuestBucket, ranking("1")), ShouldBeNil)
				list, _, _ := c.Load(ctx, model.GuestBucket)
				So(list.IDs(), ShouldResemble, []model.ItemID{"1"})
			})

			Convey("And deleting the bucket empties it", func() {
				So(c.Delete(ctx, model.GuestBucket), ShouldBeNil)
				So(c.Delete(ctx, model.GuestBucket), ShouldBeNil)
				_, ok, err := c.Load(ctx, model.GuestBucket)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And the bucket is counted", func() {
				So(c.Save(ctx, model.AccountBucket("u1"), ranking("2")), ShouldBeNil)
				n, err := c.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When an empty list is saved", func() {
			So(c.Save(ctx, model.AccountBucket("u2"), nil), ShouldBeNil)

			Convey("Then the bucket exists but holds nothing", func() {
				list, ok, err := c.Load(ctx, model.AccountBucket("u2"))
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(list, ShouldBeEmpty)
			})
		})

		Convey("When migration markers are used", func() {
			migrated, err := c.Migrated(ctx, "u1")
			So(err, ShouldBeNil)
			So(migrated, ShouldBeFalse)

			So(c.MarkMigrated(ctx, "u1"), ShouldBeNil)
			So(c.MarkMigrated(ctx, "u1"), ShouldBeNil)

			Convey("Then only that account is marked", func() {
				migrated, err := c.Migrated(ctx, "u1")
				So(err, ShouldBeNil)
				So(migrated, ShouldBeTrue)
				migrated, err = c.Migrated(ctx, "u2")
				So(err, ShouldBeNil)
				So(migrated, ShouldBeFalse)
			})
		})

		Convey("When names are empty", func() {
			So(c.Save(ctx, "", ranking("1")), ShouldEqual, repository.ErrEmptyBucket)
			_, _, err := c.Load(ctx, "")
			So(err, ShouldEqual, repository.ErrEmptyBucket)
			So(c.Delete(ctx, ""), ShouldEqual, repository.ErrEmptyBucket)
			So(c.MarkMigrated(ctx, ""), ShouldEqual, repository.ErrEmptyAccount)
			_, err = c.Migrated(ctx, "")
			So(err, ShouldEqual, repository.ErrEmptyAccount)
		})
	})
}

func TestMemoryCache(t *testing.T) {
	cacheContract(t, "MemoryCache", func(*testing.T) repository.Cache {
		return repository.NewMemoryCache()
	})

	Convey("Given a closed MemoryCache", t, func() {
		c := repository.NewMemoryCache()
		So(c.Close(), ShouldBeNil)

		Convey("Then every call is rejected", func() {
			So(c.Save(context.Background(), model.GuestBucket, nil), ShouldEqual, repository.ErrClosed)
			_, _, err := c.Load(context.Background(), model.GuestBucket)
			So(err, ShouldEqual, repository.ErrClosed)
		})
	})
}

func TestSQLiteCache(t *testing.T) {
	cacheContract(t, "SQLiteCache", func(t *testing.T) repository.Cache {
		c, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
		if err != nil {
			t.Fatalf("open sqlite cache: %v", err)
		}
		return c
	})

	Convey("Given a SQLite cache file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "cache.db")
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		c, err := repository.OpenSQLite(ctx, path, repository.WithClock(func() time.Time { return fixed }))
		So(err, ShouldBeNil)
		So(c.Save(ctx, model.AccountBucket("u1"), ranking("1", "2", "3")), ShouldBeNil)
		So(c.MarkMigrated(ctx, "u1"), ShouldBeNil)
		So(c.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			reopened, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			Reset(func() { _ = reopened.Close() })

			Convey("Then buckets and markers survived", func() {
				list, ok, err := reopened.Load(ctx, model.AccountBucket("u1"))
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(list.IDs(), ShouldResemble, []model.ItemID{"1", "2", "3"})
				migrated, err := reopened.Migrated(ctx, "u1")
				So(err, ShouldBeNil)
				So(migrated, ShouldBeTrue)
			})
		})
	})

	Convey("Given an in-memory SQLite cache", t, func() {
		c, err := repository.OpenSQLite(context.Background(), ":memory:")
		So(err, ShouldBeNil)
		Reset(func() { _ = c.Close() })

		Convey("Then it behaves like a file cache", func() {
			So(c.Save(context.Background(), model.GuestBucket, ranking("9")), ShouldBeNil)
			list, ok, err := c.Load(context.Background(), model.GuestBucket)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(list.IDs(), ShouldResemble, []model.ItemID{"9"})
		})
	})
}
