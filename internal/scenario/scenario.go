// Package scenario runs the health, index and document checks against any
// es.Store and reports what happened step by step.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/labtiva/esprobe/internal/es"
	"github.com/rs/zerolog"
)

const (
	NameClusterHealth     = "cluster health"
	NameIndexLifecycle    = "create and delete index"
	NameDocumentLifecycle = "create and delete document"
)

// FixtureID and FixtureDocument are what DocumentLifecycle writes.
const FixtureID = "1"

var FixtureDocument = []byte(`{"name":"Foobar", "number": 42}`)

type Step struct {
	Name     string
	Duration time.Duration
	Err      error
}

type Result struct {
	Scenario string
	Driver   string
	Index    string
	Steps    []Step
	Duration time.Duration
	Err      error
}

func (r Result) Passed() bool {
	return r.Err == nil
}

type Runner struct {
	Store es.Store
	Log   zerolog.Logger

	// NewIndexName overrides the random index name generator.
	NewIndexName func() string
}

func NewRunner(store es.Store, log zerolog.Logger) *Runner {
	return &Runner{Store: store, Log: log}
}

// RandomIndexName returns a fresh lower-case UUID, which is always a valid
// index name.
func RandomIndexName() string {
	return strings.ToLower(uuid.NewString())
}

func (r *Runner) indexName() string {
	if r.NewIndexName != nil {
		return r.NewIndexName()
	}
	return RandomIndexName()
}

// RunAll runs every scenario in order and returns one Result each. A failing
// scenario does not stop the ones after it.
func (r *Runner) RunAll(ctx context.Context) []Result {
	return []Result{
		r.ClusterHealth(ctx),
		r.IndexLifecycle(ctx),
		r.DocumentLifecycle(ctx),
	}
}

// run executes a scenario body and fills in the Result. The body records its
// own steps through rec.
func (r *Runner) run(name, index string, body func(rec *recorder) error) Result {
	start := time.Now()
	rec := &recorder{}
	err := body(rec)

	res := Result{
		Scenario: name,
		Driver:   r.Store.Driver(),
		Index:    index,
		Steps:    rec.steps,
		Duration: time.Since(start),
		Err:      err,
	}

	ev := r.Log.Info()
	if err != nil {
		ev = r.Log.Error().Err(err)
	}
	ev.Str("scenario", name).
		Str("driver", res.Driver).
		Str("index", index).
		Dur("duration", res.Duration).
		Msg("scenario finished")
	return res
}

type recorder struct {
	steps []Step
}

func (rec *recorder) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	rec.steps = append(rec.steps, Step{Name: name, Duration: time.Since(start), Err: err})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// cleanup drops the index if a scenario stopped before deleting it.
func (r *Runner) cleanup(index string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := r.Store.IndexExists(ctx, index)
	if err != nil || !exists {
		return
	}
	if _, err := r.Store.DeleteIndex(ctx, index); err != nil {
		r.Log.Warn().Err(err).Str("index", index).Msg("cleanup failed")
	}
}

func (r *Runner) ClusterHealth(ctx context.Context) Result {
	return r.run(NameClusterHealth, "", func(rec *recorder) error {
		return rec.step("check health", func() error {
			health, err := r.Store.Health(ctx)
			if err != nil {
				return err
			}
			if health.ClusterName == "" {
				return errors.New("empty cluster name")
			}
			if health.Status.Critical() {
				return fmt.Errorf("cluster status is %s", health.Status)
			}
			return nil
		})
	})
}

func (r *Runner) IndexLifecycle(ctx context.Context) Result {
	index := r.indexName()
	return r.run(NameIndexLifecycle, index, func(rec *recorder) error {
		defer r.cleanup(index)

		if err := rec.step("index absent before create", func() error {
			return r.expectExists(ctx, index, false)
		}); err != nil {
			return err
		}
		if err := rec.step("create index", func() error {
			return r.createIndex(ctx, index)
		}); err != nil {
			return err
		}
		if err := rec.step("index exists", func() error {
			return r.expectExists(ctx, index, true)
		}); err != nil {
			return err
		}
		if err := rec.step("delete index", func() error {
			return r.deleteIndex(ctx, index)
		}); err != nil {
			return err
		}
		return rec.step("index absent after delete", func() error {
			return r.expectExists(ctx, index, false)
		})
	})
}

func (r *Runner) DocumentLifecycle(ctx context.Context) Result {
	index := r.indexName()
	return r.run(NameDocumentLifecycle, index, func(rec *recorder) error {
		defer r.cleanup(index)

		steps := []struct {
			name string
			fn   func() error
		}{
			{"create index", func() error { return r.createIndex(ctx, index) }},
			{"index exists", func() error { return r.expectExists(ctx, index, true) }},
			{"put document", func() error {
				created, err := r.Store.PutDocument(ctx, index, FixtureID, FixtureDocument)
				if err != nil {
					return err
				}
				if !created {
					return errors.New("document was overwritten, expected a create")
				}
				return nil
			}},
			{"get document", func() error {
				doc, err := r.Store.GetDocument(ctx, index, FixtureID)
				if err != nil {
					return err
				}
				return checkDocument(doc, index)
			}},
			{"query_string search", func() error {
				return r.expectSingleHit(ctx, index, es.QueryString("name:Foo*"))
			}},
			{"wildcard search", func() error {
				return r.expectSingleHit(ctx, index, es.Wildcard("name", "*"))
			}},
			{"delete document", func() error {
				deleted, err := r.Store.DeleteDocument(ctx, index, FixtureID)
				if err != nil {
					return err
				}
				if !deleted {
					return errors.New("document was not deleted")
				}
				return nil
			}},
			{"document gone", func() error { return r.expectMissing(ctx, index) }},
			{"delete index", func() error { return r.deleteIndex(ctx, index) }},
			{"document gone with index", func() error { return r.expectMissing(ctx, index) }},
		}

		for _, s := range steps {
			if err := rec.step(s.name, s.fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Runner) createIndex(ctx context.Context, index string) error {
	ack, err := r.Store.CreateIndex(ctx, index)
	if err != nil {
		return err
	}
	if !ack {
		return errors.New("create not acknowledged")
	}
	return nil
}

func (r *Runner) deleteIndex(ctx context.Context, index string) error {
	ack, err := r.Store.DeleteIndex(ctx, index)
	if err != nil {
		return err
	}
	if !ack {
		return errors.New("delete not acknowledged")
	}
	return nil
}

func (r *Runner) expectExists(ctx context.Context, index string, want bool) error {
	got, err := r.Store.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("index exists = %v, want %v", got, want)
	}
	return nil
}

func (r *Runner) expectMissing(ctx context.Context, index string) error {
	doc, err := r.Store.GetDocument(ctx, index, FixtureID)
	if errors.Is(err, es.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("document %s/%s still readable", doc.Index, doc.ID)
}

func (r *Runner) expectSingleHit(ctx context.Context, index string, q es.Query) error {
	res, err := r.Store.Search(ctx, index, es.SearchRequest{Query: q, Size: 10})
	if err != nil {
		return err
	}
	if res.Total != 1 || len(res.Hits) != 1 {
		return fmt.Errorf("got %d hits (total %d), want 1", len(res.Hits), res.Total)
	}
	hit := res.Hits[0]
	if hit.ID != FixtureID {
		return fmt.Errorf("hit id = %q, want %q", hit.ID, FixtureID)
	}
	return sameSource(hit.Source)
}

func checkDocument(doc *es.Document, index string) error {
	if !doc.Found {
		return errors.New("document not found")
	}
	if doc.ID != FixtureID {
		return fmt.Errorf("id = %q, want %q", doc.ID, FixtureID)
	}
	if doc.Index != index {
		return fmt.Errorf("index = %q, want %q", doc.Index, index)
	}
	return sameSource(doc.Source)
}

// sameSource compares JSON values rather than bytes, since the cluster may
// re-serialize the body.
func sameSource(got json.RawMessage) error {
	var want, have any
	if err := json.Unmarshal(FixtureDocument, &want); err != nil {
		return err
	}
	if err := json.Unmarshal(got, &have); err != nil {
		return fmt.Errorf("source is not JSON: %w", err)
	}
	if diff := cmp.Diff(want, have); diff != "" {
		return fmt.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	return nil
}
