package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	api "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/http/api"
	repository "github.com/shxuryaaz/BlackSwan-Credit-system/internal/adapters/repository"
	service "github.com/shxuryaaz/BlackSwan-Credit-system/internal/app"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/events"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps implements api.Dependencies backed by maps.
type mockDeps struct {
	issuers      map[string]repository.Issuer
	scores       map[string][]model.ScoreResult
	seenEvents   map[string]bool
	backpressure bool
	enqueued     []string
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		issuers:    make(map[string]repository.Issuer),
		scores:     make(map[string][]model.ScoreResult),
		seenEvents: make(map[string]bool),
	}
}

func (m *mockDeps) CreateIssuer(ctx context.Context, issuer repository.Issuer) error {
	if _, ok := m.issuers[issuer.ID]; ok {
		return repository.ErrDuplicateIssuer
	}
	m.issuers[issuer.ID] = issuer
	return nil
}

func (m *mockDeps) GetIssuer(ctx context.Context, id string) (repository.Issuer, error) {
	issuer, ok := m.issuers[id]
	if !ok {
		return repository.Issuer{}, repository.ErrIssuerNotFound
	}
	return issuer, nil
}

func (m *mockDeps) ListIssuers(ctx context.Context) ([]repository.Issuer, error) {
	out := make([]repository.Issuer, 0, len(m.issuers))
	for _, issuer := range m.issuers {
		out = append(out, issuer)
	}
	return out, nil
}

func (m *mockDeps) RecordFeature(ctx context.Context, fv model.FeatureValue) error {
	if _, ok := m.issuers[fv.IssuerID]; !ok {
		return repository.ErrIssuerNotFound
	}
	return nil
}

func (m *mockDeps) RecordMacro(ctx context.Context, mi model.MacroIndicator) error {
	return nil
}

func (m *mockDeps) IngestEvent(ctx context.Context, req service.IngestRequest) (model.EventRecord, error) {
	if _, ok := m.issuers[req.IssuerID]; !ok {
		return model.EventRecord{}, repository.ErrIssuerNotFound
	}
	id := events.ContentHash(req.Headline, req.URL)
	if m.seenEvents[id] {
		return model.EventRecord{}, repository.ErrDuplicateEvent
	}
	m.seenEvents[id] = true

	eventType := req.Type
	if eventType == "" {
		eventType = events.Classify(req.Headline)
	}
	return model.EventRecord{
		ID:       id,
		IssuerID: req.IssuerID,
		Type:     eventType,
		Weight:   events.Weight(eventType, req.Sentiment),
	}, nil
}

func (m *mockDeps) EnqueueRecompute(ctx context.Context, issuerID, reason string) bool {
	if m.backpressure {
		return false
	}
	m.enqueued = append(m.enqueued, issuerID)
	return true
}

func (m *mockDeps) RecomputeAll(ctx context.Context) (int, error) {
	count := 0
	for id := range m.issuers {
		if m.EnqueueRecompute(ctx, id, "scheduled") {
			count++
		}
	}
	return count, nil
}

func (m *mockDeps) LatestScore(ctx context.Context, issuerID string) (model.ScoreResult, error) {
	history := m.scores[issuerID]
	if len(history) == 0 {
		return model.ScoreResult{}, repository.ErrScoreNotFound
	}
	return history[0], nil
}

func (m *mockDeps) ScoreHistory(ctx context.Context, issuerID string, limit int) ([]model.ScoreResult, error) {
	history := m.scores[issuerID]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	return history, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIssuerEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("When creating an issuer", func() {
			rec := doRequest(mux, http.MethodPost, "/issuers",
				`{"id":"acme","name":"Acme Corp","ticker":"ACME"}`)

			So(rec.Code, ShouldEqual, http.StatusCreated)

			Convey("And creating it again conflicts", func() {
				rec := doRequest(mux, http.MethodPost, "/issuers",
					`{"id":"acme","name":"Acme Corp"}`)
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("And the listing includes it", func() {
				rec := doRequest(mux, http.MethodGet, "/issuers", "")
				So(rec.Code, ShouldEqual, http.StatusOK)

				var issuers []repository.Issuer
				So(json.Unmarshal(rec.Body.Bytes(), &issuers), ShouldBeNil)
				So(len(issuers), ShouldEqual, 1)
				So(issuers[0].ID, ShouldEqual, "acme")
			})
		})

		Convey("When the body is missing required fields", func() {
			rec := doRequest(mux, http.MethodPost, "/issuers", `{"name":"No ID"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			rec := doRequest(mux, http.MethodPost, "/issuers", "not json")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestFeatureEndpoint(t *testing.T) {
	Convey("Given the API server with one issuer", t, func() {
		deps := newMockDeps()
		deps.issuers["acme"] = repository.Issuer{ID: "acme", Name: "Acme"}
		mux := newTestMux(deps)

		Convey("When posting a valid feature snapshot", func() {
			rec := doRequest(mux, http.MethodPost, "/features",
				`{"issuer_id":"acme","feature_name":"icr","value":2.5,"ts":"2026-08-01T00:00:00Z"}`)
			So(rec.Code, ShouldEqual, http.StatusAccepted)
		})

		Convey("When the issuer is unknown", func() {
			rec := doRequest(mux, http.MethodPost, "/features",
				`{"issuer_id":"missing","feature_name":"icr","value":2.5}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the timestamp is malformed", func() {
			rec := doRequest(mux, http.MethodPost, "/features",
				`{"issuer_id":"acme","feature_name":"icr","value":2.5,"ts":"yesterday"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestEventEndpoint(t *testing.T) {
	Convey("Given the API server with one issuer", t, func() {
		deps := newMockDeps()
		deps.issuers["acme"] = repository.Issuer{ID: "acme", Name: "Acme"}
		mux := newTestMux(deps)

		body := `{"issuer_id":"acme","headline":"Acme rating downgrade","url":"https://n.example.com/1","sentiment":-0.5}`

		Convey("When posting a news event", func() {
			rec := doRequest(mux, http.MethodPost, "/events", body)
			So(rec.Code, ShouldEqual, http.StatusAccepted)

			var resp map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["status"], ShouldEqual, "accepted")
			So(resp["type"], ShouldEqual, events.TypeDowngrade)
			So(resp["weight"], ShouldAlmostEqual, -7.5, 1e-9)

			Convey("And posting the same content reports a duplicate", func() {
				rec := doRequest(mux, http.MethodPost, "/events", body)
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["status"], ShouldEqual, "duplicate")
			})
		})

		Convey("When sentiment is out of range", func() {
			rec := doRequest(mux, http.MethodPost, "/events",
				`{"issuer_id":"acme","headline":"h","sentiment":2.0}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the issuer is unknown", func() {
			rec := doRequest(mux, http.MethodPost, "/events",
				`{"issuer_id":"missing","headline":"Some headline"}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMacroEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("When posting a macro observation", func() {
			rec := doRequest(mux, http.MethodPost, "/macro",
				`{"key":"cpi_yoy","value":3.4,"source":"stats-bureau"}`)
			So(rec.Code, ShouldEqual, http.StatusAccepted)
		})

		Convey("When the key is missing", func() {
			rec := doRequest(mux, http.MethodPost, "/macro", `{"value":3.4}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRecomputeEndpoints(t *testing.T) {
	Convey("Given the API server with issuers", t, func() {
		deps := newMockDeps()
		deps.issuers["acme"] = repository.Issuer{ID: "acme", Name: "Acme"}
		deps.issuers["globex"] = repository.Issuer{ID: "globex", Name: "Globex"}
		mux := newTestMux(deps)

		Convey("When triggering a batch recompute", func() {
			rec := doRequest(mux, http.MethodPost, "/recompute", "")
			So(rec.Code, ShouldEqual, http.StatusAccepted)

			var resp map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["enqueued"], ShouldEqual, 2)
		})

		Convey("When triggering a single issuer recompute", func() {
			rec := doRequest(mux, http.MethodPost, "/recompute/acme", "")
			So(rec.Code, ShouldEqual, http.StatusAccepted)
			So(deps.enqueued, ShouldContain, "acme")
		})

		Convey("When the issuer is unknown", func() {
			rec := doRequest(mux, http.MethodPost, "/recompute/missing", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the queue is saturated", func() {
			deps.backpressure = true
			rec := doRequest(mux, http.MethodPost, "/recompute/acme", "")
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("When using the wrong method", func() {
			rec := doRequest(mux, http.MethodGet, "/recompute/acme", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestScoreEndpoints(t *testing.T) {
	Convey("Given the API server with score history", t, func() {
		deps := newMockDeps()
		deps.issuers["acme"] = repository.Issuer{ID: "acme", Name: "Acme"}
		deps.scores["acme"] = []model.ScoreResult{
			{
				IssuerID:     "acme",
				ComputedAt:   time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
				Score:        52.0551234,
				Bucket:       model.BucketB,
				ModelVersion: "v1.0",
				Explanation: model.Explanation{
					TopFeatures: []model.FeatureImpact{{Name: "icr", Impact: 8.3}},
					Summary:     "Score increased by 2.1 points.",
				},
			},
			{
				IssuerID:   "acme",
				ComputedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
				Score:      49.93,
				Bucket:     model.BucketCCC,
			},
		}
		mux := newTestMux(deps)

		Convey("When reading the latest score", func() {
			rec := doRequest(mux, http.MethodGet, "/scores/acme/latest", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)

			Convey("Then the score is rounded to one decimal", func() {
				So(resp["score"], ShouldEqual, 52.1)
				So(resp["bucket"], ShouldEqual, "B")
			})

			Convey("And the explanation rides along", func() {
				explanation := resp["explanation"].(map[string]any)
				So(explanation["summary"], ShouldEqual, "Score increased by 2.1 points.")
			})
		})

		Convey("When no score exists yet", func() {
			rec := doRequest(mux, http.MethodGet, "/scores/globex/latest", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When reading the history", func() {
			rec := doRequest(mux, http.MethodGet, "/scores/acme", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var history []map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &history), ShouldBeNil)
			So(len(history), ShouldEqual, 2)
			So(history[1]["score"], ShouldEqual, 49.9)
		})

		Convey("When limiting the history", func() {
			rec := doRequest(mux, http.MethodGet, "/scores/acme?limit=1", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var history []map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &history), ShouldBeNil)
			So(len(history), ShouldEqual, 1)
		})

		Convey("When the limit is malformed", func() {
			rec := doRequest(mux, http.MethodGet, "/scores/acme?limit=lots", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newMockDeps()
		mux := newTestMux(deps)

		Convey("When reading stats", func() {
			rec := doRequest(mux, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var stats map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldBeTrue)
		})
	})
}
