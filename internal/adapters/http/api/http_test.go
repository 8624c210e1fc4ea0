package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/cinerank/internal/adapters/http/api"
	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/domain/comparison"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

// rank drives a session to completion, always preferring the existing item.
func rank(mux http.Handler, body string) types.Comparison {
	w := do(mux, http.MethodPost, "/ranking/sessions", body)
	So(w.Code, ShouldEqual, http.StatusCreated)
	view := decode[types.Comparison](w)
	So(w.Header().Get("Location"), ShouldEqual, "/ranking/sessions/"+view.ID)
	for view.Placement == nil {
		choice := "existing"
		if view.State == "baseline" {
			choice = "baseline"
		}
		w = do(mux, http.MethodPost, "/ranking/sessions/"+view.ID+"/choice", `{"choice":"`+choice+`"}`)
		So(w.Code, ShouldEqual, http.StatusOK)
		view = decode[types.Comparison](w)
	}
	return view
}

func TestServer_Ranking(t *testing.T) {
	Convey("Given the API wired to a started ranking service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		mux := newMux(svc, svc)

		Convey("When three movies are rated", func() {
			first := rank(mux, `{"id": 603, "title": "The Matrix", "poster_url": null}`)
			rank(mux, `{"id": "604", "title": "The Matrix Reloaded"}`)
			rank(mux, `{"id": 605, "title": "The Matrix Revolutions", "genres": [28]}`)

			Convey("Then the ranking shows projected scores", func() {
				So(first.Placement.Score, ShouldEqual, 10.0)
				w := do(mux, http.MethodGet, "/ranking", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				entries := decode[[]types.Entry](w)
				So(len(entries), ShouldEqual, 3)
				So(entries[0].ID, ShouldEqual, model.ItemID("603"))
				So(entries[0].Score, ShouldEqual, 10.0)
				So(entries[1].Score, ShouldEqual, 5.5)
				So(entries[2].Score, ShouldEqual, 1.0)
			})

			Convey("And the raw ranking carries no score", func() {
				w := do(mux, http.MethodGet, "/ranking/raw", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "score")
				So(w.Body.String(), ShouldContainSubstring, `"poster_url":null`)
			})

			Convey("And a move followed by undo restores the order", func() {
				w := do(mux, http.MethodPost, "/ranking/move", `{"from": 2, "to": 0}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[[]types.Entry](w)[0].ID, ShouldEqual, model.ItemID("605"))

				w = do(mux, http.MethodPost, "/ranking/undo", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[[]types.Entry](w)[0].ID, ShouldEqual, model.ItemID("603"))

				w = do(mux, http.MethodPost, "/ranking/undo", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode[map[string]string](w)["code"], ShouldEqual, "nothing_to_undo")
			})

			Convey("And an item can be removed once", func() {
				w := do(mux, http.MethodDelete, "/ranking/items/604", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(decode[[]types.Entry](w)), ShouldEqual, 2)

				w = do(mux, http.MethodDelete, "/ranking/items/604", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And re-ranking never compares the item with itself", func() {
				w := do(mux, http.MethodPost, "/ranking/sessions", `{"id": 604, "title": "The Matrix Reloaded"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				view := decode[types.Comparison](w)
				So(view.Target.ID, ShouldEqual, model.ItemID("603"))

				w = do(mux, http.MethodPost, "/ranking/sessions/"+view.ID+"/choice", `{"choice":"candidate"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Comparison](w).Placement.Rank, ShouldEqual, 1)

				entries := decode[[]types.Entry](do(mux, http.MethodGet, "/ranking", ""))
				So(len(entries), ShouldEqual, 3)
				So(entries[0].ID, ShouldEqual, model.ItemID("604"))
			})
		})

		Convey("When a session is inspected and abandoned", func() {
			rank(mux, `{"id": 1, "title": "Alien"}`)
			w := do(mux, http.MethodPost, "/ranking/sessions", `{"id": 2, "title": "Aliens"}`)
			view := decode[types.Comparison](w)

			Convey("Then it can be read back and then deleted", func() {
				w := do(mux, http.MethodGet, "/ranking/sessions/"+view.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Comparison](w).Target.ID, ShouldEqual, model.ItemID("1"))

				w = do(mux, http.MethodDelete, "/ranking/sessions/"+view.ID, "")
				So(w.Code, ShouldEqual, http.StatusNoContent)

				w = do(mux, http.MethodGet, "/ranking/sessions/"+view.ID, "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And an unknown choice is rejected", func() {
				w := do(mux, http.MethodPost, "/ranking/sessions/"+view.ID+"/choice", `{"choice":"maybe"}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And a baseline confirmation on a comparing session conflicts", func() {
				w := do(mux, http.MethodPost, "/ranking/sessions/"+view.ID+"/choice", `{"choice":"baseline"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When requests are malformed", func() {
			Convey("Then they are rejected as bad requests", func() {
				So(do(mux, http.MethodPost, "/ranking/sessions", `{"title": "no id"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/ranking/sessions", `{"id": ""}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/ranking/sessions", `{"id": 1, "rating": 5}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/ranking/move", `{"from": 0}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/ranking/move", `{"from": 0, "to": 9}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/ranking/move", `not json`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a route or method is unknown", func() {
			Convey("Then the mux answers for it", func() {
				So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
				So(do(mux, http.MethodPut, "/ranking", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestServer_Identity(t *testing.T) {
	Convey("Given the API wired to a started ranking service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		mux := newMux(svc, svc)

		Convey("When nobody signed in", func() {
			w := do(mux, http.MethodGet, "/identity", "")

			Convey("Then the identity is the guest", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode[map[string]any](w)
				So(body["kind"], ShouldEqual, "guest")
				So(body["can_sync"], ShouldEqual, false)
			})
		})

		Convey("When an account signs in with a bearer token", func() {
			req := httptest.NewRequest(http.MethodPut, "/identity", strings.NewReader(`{"account_id":"u1"}`))
			req.Header.Set("Authorization", "Bearer tok")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the account becomes active and can sync", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode[map[string]any](w)
				So(body["kind"], ShouldEqual, "account")
				So(body["account_id"], ShouldEqual, "u1")
				So(body["can_sync"], ShouldEqual, true)
				So(w.Body.String(), ShouldNotContainSubstring, "tok")
			})

			Convey("And signing out returns to the guest", func() {
				w := do(mux, http.MethodDelete, "/identity", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](w)["kind"], ShouldEqual, "guest")
			})
		})

		Convey("When an account id is missing", func() {
			w := do(mux, http.MethodPut, "/identity", `{"credential":"tok"}`)

			Convey("Then the sign-in is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestServer_Operational(t *testing.T) {
	Convey("Given the API wired to a started ranking service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		mux := newMux(svc, svc)

		Convey("Then health, stats and metrics are served", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]string](w)["status"], ShouldEqual, "ok")

			w = do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["started"], ShouldEqual, true)

			w = do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "cinerank_")

			w = do(mux, http.MethodPost, "/ranking/backfill", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]int](w)["filled"], ShouldEqual, 0)
		})
	})
}

// mockDependencies fails every call with err.
type mockDependencies struct {
	err error
}

func (m *mockDependencies) List(context.Context) ([]types.Entry, error) { return nil, m.err }
func (m *mockDependencies) RawList(context.Context) (model.List, error) { return nil, m.err }
func (m *mockDependencies) Move(context.Context, int, int) ([]types.Entry, error) {
	return nil, m.err
}
func (m *mockDependencies) Undo(context.Context) ([]types.Entry, error) { return nil, m.err }
func (m *mockDependencies) Remove(context.Context, model.ItemID) ([]types.Entry, error) {
	return nil, m.err
}
func (m *mockDependencies) Backfill(context.Context) (int, error) { return 0, m.err }
func (m *mockDependencies) BeginInsertion(context.Context, model.RankedItem) (types.Comparison, error) {
	return types.Comparison{}, m.err
}
func (m *mockDependencies) Session(context.Context, string) (types.Comparison, error) {
	return types.Comparison{}, m.err
}
func (m *mockDependencies) Choose(context.Context, string, comparison.Choice) (types.Comparison, error) {
	return types.Comparison{}, m.err
}
func (m *mockDependencies) Abandon(context.Context, string) error { return m.err }
func (m *mockDependencies) Identity() model.Identity { return model.Guest() }
func (m *mockDependencies) Hydrating() bool { return false }
func (m *mockDependencies) SwitchIdentity(context.Context, model.Identity) error { return m.err }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stale session", service.ErrStaleSession, http.StatusConflict, "stale_session"},
		{"resolved session", comparison.ErrResolved, http.StatusConflict, "conflict"},
		{"not started", service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{"missing session", service.ErrSessionNotFound, http.StatusNotFound, "not_found"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := newMux(&mockDependencies{err: tc.err}, &mockStatsProvider{})
			w := do(mux, http.MethodPost, "/ranking/sessions/abc/choice", `{"choice":"skip"}`)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["code"] != tc.code {
				t.Fatalf("code = %q, want %q", body["code"], tc.code)
			}
			if !strings.Contains(body["message"], "api.choose") {
				t.Fatalf("message %q should name the operation", body["message"])
			}
		})
	}
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		handler := api.NewStatsHandler(&mockStatsProvider{stats: map[string]interface{}{"rankingSize": 3}})

		Convey("When stats are requested", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))

			Convey("Then they are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(decode[map[string]int](w)["rankingSize"], ShouldEqual, 3)
			})
		})
	})
}
