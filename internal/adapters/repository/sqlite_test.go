package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	repository "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/repository"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIssuerCRUD(t *testing.T) {
	Convey("Given a fresh store", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		Convey("When creating an issuer", func() {
			err := store.CreateIssuer(ctx, repository.Issuer{
				ID: "acme", Name: "Acme Corp", Ticker: "ACME", Sector: "industrials",
			})
			So(err, ShouldBeNil)

			Convey("Then it can be read back", func() {
				issuer, err := store.GetIssuer(ctx, "acme")
				So(err, ShouldBeNil)
				So(issuer.Name, ShouldEqual, "Acme Corp")
				So(issuer.Ticker, ShouldEqual, "ACME")
			})

			Convey("And creating the same id again fails", func() {
				err := store.CreateIssuer(ctx, repository.Issuer{ID: "acme", Name: "Other"})
				So(err, ShouldEqual, repository.ErrDuplicateIssuer)
			})
		})

		Convey("When listing issuers", func() {
			So(store.CreateIssuer(ctx, repository.Issuer{ID: "b", Name: "B"}), ShouldBeNil)
			So(store.CreateIssuer(ctx, repository.Issuer{ID: "a", Name: "A"}), ShouldBeNil)

			issuers, err := store.ListIssuers(ctx)
			So(err, ShouldBeNil)
			So(len(issuers), ShouldEqual, 2)
			So(issuers[0].ID, ShouldEqual, "a")
			So(issuers[1].ID, ShouldEqual, "b")
		})

		Convey("When looking up an unknown issuer", func() {
			_, err := store.GetIssuer(ctx, "missing")
			So(err, ShouldEqual, repository.ErrIssuerNotFound)
		})
	})
}

func TestLatestFeatures(t *testing.T) {
	Convey("Given a store with feature snapshots", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

		record := func(name string, value float64, ts time.Time) {
			So(store.RecordFeature(ctx, model.FeatureValue{
				IssuerID: "acme", Name: name, Value: value, ObservedAt: ts, Source: "test",
			}), ShouldBeNil)
		}

		record("icr", 2.0, base)
		record("icr", 3.5, base.Add(24*time.Hour))
		record("altman_z", 1.8, base)
		record("current_ratio", 1.2, base)

		Convey("When reading the latest values for a whitelist", func() {
			features, err := store.LatestFeatures(ctx, "acme", []string{"icr", "altman_z", "rev_yoy"})
			So(err, ShouldBeNil)

			Convey("Then each requested feature maps to its newest value", func() {
				So(features, ShouldContainKey, "icr")
				So(features["icr"], ShouldEqual, 3.5)
				So(features["altman_z"], ShouldEqual, 1.8)
			})

			Convey("And absent features are simply missing", func() {
				So(features, ShouldNotContainKey, "rev_yoy")
				So(features, ShouldNotContainKey, "current_ratio")
			})
		})

		Convey("When the whitelist is empty", func() {
			features, err := store.LatestFeatures(ctx, "acme", nil)
			So(err, ShouldBeNil)
			So(len(features), ShouldEqual, 0)
		})

		Convey("When another issuer's snapshots exist", func() {
			record("icr", 9.9, base.Add(48*time.Hour))
			So(store.RecordFeature(ctx, model.FeatureValue{
				IssuerID: "other", Name: "icr", Value: 0.1, ObservedAt: base.Add(72 * time.Hour),
			}), ShouldBeNil)

			features, err := store.LatestFeatures(ctx, "acme", []string{"icr"})
			So(err, ShouldBeNil)
			So(features["icr"], ShouldEqual, 9.9)
		})
	})
}

func TestEventsAndDecay(t *testing.T) {
	Convey("Given a store with events", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		window := 7 * 24 * time.Hour

		event := func(id string, ts time.Time, decay float64) model.EventRecord {
			return model.EventRecord{
				ID: id, IssuerID: "acme", Type: "downgrade", Weight: -5.0,
				DecayFactor: decay, Headline: "h", URL: "u", OccurredAt: ts, Source: "rss",
			}
		}

		Convey("When recording an event twice", func() {
			So(store.RecordEvent(ctx, event("e1", now, 1.0)), ShouldBeNil)
			err := store.RecordEvent(ctx, event("e1", now, 1.0))

			Convey("Then the second insert reports a duplicate", func() {
				So(err, ShouldEqual, repository.ErrDuplicateEvent)
			})
		})

		Convey("When reading active events", func() {
			So(store.RecordEvent(ctx, event("fresh", now.Add(-time.Hour), 1.0)), ShouldBeNil)
			So(store.RecordEvent(ctx, event("stale", now.Add(-10*24*time.Hour), 1.0)), ShouldBeNil)
			So(store.RecordEvent(ctx, event("decayed", now.Add(-time.Hour), 0.05)), ShouldBeNil)

			active, err := store.ActiveEvents(ctx, "acme", now.Add(-window), 0.1)
			So(err, ShouldBeNil)

			Convey("Then only in-window events above the floor come back", func() {
				So(len(active), ShouldEqual, 1)
				So(active[0].ID, ShouldEqual, "fresh")
				So(active[0].OccurredAt.Equal(now.Add(-time.Hour)), ShouldBeTrue)
			})
		})

		Convey("When refreshing decay factors", func() {
			So(store.RecordEvent(ctx, event("old", now.Add(-window/2), 1.0)), ShouldBeNil)
			So(store.RecordEvent(ctx, event("new", now, 1.0)), ShouldBeNil)

			updated, err := store.RefreshDecay(ctx, now, window)
			So(err, ShouldBeNil)

			Convey("Then aged events are lowered and fresh ones untouched", func() {
				So(updated, ShouldEqual, 1)

				active, err := store.ActiveEvents(ctx, "acme", now.Add(-window), 0.0)
				So(err, ShouldBeNil)
				byID := map[string]float64{}
				for _, ev := range active {
					byID[ev.ID] = ev.DecayFactor
				}
				// exp(-ln10 * 0.5) ~ 0.3162
				So(byID["old"], ShouldAlmostEqual, 0.31622776, 1e-6)
				So(byID["new"], ShouldEqual, 1.0)
			})

			Convey("And a second refresh at the same instant changes nothing", func() {
				updated, err := store.RefreshDecay(ctx, now, window)
				So(err, ShouldBeNil)
				So(updated, ShouldEqual, 0)
			})

			Convey("And a refresh with an earlier clock never raises factors", func() {
				_, err := store.RefreshDecay(ctx, now.Add(-window), window)
				So(err, ShouldBeNil)

				active, err := store.ActiveEvents(ctx, "acme", now.Add(-2*window), 0.0)
				So(err, ShouldBeNil)
				for _, ev := range active {
					So(ev.DecayFactor, ShouldBeLessThanOrEqualTo, 1.0)
				}
			})
		})
	})
}

func TestMacros(t *testing.T) {
	Convey("Given a store with macro observations", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

		So(store.RecordMacro(ctx, model.MacroIndicator{Key: "cpi_yoy", Value: 2.5, ObservedAt: base}), ShouldBeNil)
		So(store.RecordMacro(ctx, model.MacroIndicator{Key: "cpi_yoy", Value: 3.4, ObservedAt: base.Add(time.Hour)}), ShouldBeNil)
		So(store.RecordMacro(ctx, model.MacroIndicator{Key: "pmi", Value: 52.0, ObservedAt: base}), ShouldBeNil)

		Convey("When reading the latest macros", func() {
			macros, err := store.LatestMacros(ctx)
			So(err, ShouldBeNil)

			Convey("Then each key maps to its newest observation", func() {
				So(macros["cpi_yoy"], ShouldEqual, 3.4)
				So(macros["pmi"], ShouldEqual, 52.0)
			})
		})
	})
}

func TestScoreHistory(t *testing.T) {
	Convey("Given a store with score records", t, func() {
		store := newTestStore(t)
		ctx := context.Background()
		base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

		result := func(ts time.Time, score float64) model.ScoreResult {
			return model.ScoreResult{
				IssuerID:     "acme",
				ComputedAt:   ts,
				Score:        score,
				Bucket:       model.BucketB,
				Base:         0.15,
				EventDelta:   -0.1,
				ModelVersion: "v1",
				Explanation: model.Explanation{
					TopFeatures: []model.FeatureImpact{{Name: "icr", Impact: 8.3}},
					Summary:     "stable",
				},
			}
		}

		Convey("When no score exists yet", func() {
			_, err := store.LatestScore(ctx, "acme")
			So(err, ShouldEqual, repository.ErrScoreNotFound)
		})

		Convey("When appending several runs", func() {
			So(store.AppendScore(ctx, result(base, 51.0)), ShouldBeNil)
			So(store.AppendScore(ctx, result(base.Add(time.Hour), 52.1)), ShouldBeNil)
			So(store.AppendScore(ctx, result(base.Add(2*time.Hour), 49.8)), ShouldBeNil)

			Convey("Then the latest read returns the newest run with its explanation", func() {
				latest, err := store.LatestScore(ctx, "acme")
				So(err, ShouldBeNil)
				So(latest.Score, ShouldEqual, 49.8)
				So(latest.ComputedAt.Equal(base.Add(2*time.Hour)), ShouldBeTrue)
				So(latest.Bucket, ShouldEqual, model.BucketB)
				So(len(latest.Explanation.TopFeatures), ShouldEqual, 1)
				So(latest.Explanation.TopFeatures[0].Name, ShouldEqual, "icr")
				So(latest.Explanation.Summary, ShouldEqual, "stable")
			})

			Convey("And history comes back newest first", func() {
				history, err := store.ScoreHistory(ctx, "acme", 0)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 3)
				So(history[0].Score, ShouldEqual, 49.8)
				So(history[2].Score, ShouldEqual, 51.0)
			})

			Convey("And the limit caps the history", func() {
				history, err := store.ScoreHistory(ctx, "acme", 2)
				So(err, ShouldBeNil)
				So(len(history), ShouldEqual, 2)
			})
		})
	})
}
