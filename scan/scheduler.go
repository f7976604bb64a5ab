package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/survey"
	"github.com/yairfalse/kartta/telemetry"
)

// ErrUnknownType marks a requested resource type with no catalog entry.
var ErrUnknownType = errors.New("unknown resource type")

// Scheduler runs one scan: it owns the survey store being filled, the
// fetch units, and the contexts to fetch in. A scheduler is single use;
// build a fresh one per scan.
type Scheduler struct {
	// WaitTimeout bounds how long a joiner waits for a unit another
	// goroutine is running.
	WaitTimeout time.Duration

	catalog  *registry.Catalog
	contexts []*Context
	engine   *fetch.Engine
	store    *survey.Store
	pagers   map[registry.Ref]Pager
	skip     map[registry.Ref]bool
	log      *telemetry.Logger

	mu    sync.Mutex
	units map[registry.Ref]*fetchUnit
}

// NewScheduler builds a scheduler over the given catalog and contexts.
func NewScheduler(catalog *registry.Catalog, contexts []*Context, engine *fetch.Engine) *Scheduler {
	return &Scheduler{
		WaitTimeout: DefaultWaitTimeout,
		catalog:     catalog,
		contexts:    contexts,
		engine:      engine,
		store:       survey.NewStore(),
		pagers:      make(map[registry.Ref]Pager),
		skip:        make(map[registry.Ref]bool),
		log:         telemetry.NewLogger("scan"),
		units:       make(map[registry.Ref]*fetchUnit),
	}
}

// RegisterPager installs a custom fetch strategy for one resource type.
func (s *Scheduler) RegisterPager(ref registry.Ref, p Pager) {
	s.pagers[ref] = p
}

// Skip marks resource types that stay in the dependency graph but are
// never fetched.
func (s *Scheduler) Skip(refs ...registry.Ref) {
	for _, ref := range refs {
		s.skip[ref] = true
	}
}

// Store exposes the backing store, mainly for evaluation after a scan.
func (s *Scheduler) Store() *survey.Store {
	return s.store
}

// Scan fetches the requested resource types plus everything they
// require, concurrently, then freezes the store and returns a view
// restricted to the requested types. Dependencies pulled in by the
// closure are fetched but not visible in the returned view.
func (s *Scheduler) Scan(ctx context.Context, requested []registry.Ref) (*survey.Store, error) {
	for _, ref := range requested {
		if _, ok := s.catalog.Get(ref); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, ref)
		}
	}
	refs := s.closure(requested)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		g.Go(func() error {
			return s.runUnit(gctx, ref)
		})
	}
	err := g.Wait()
	s.store.Freeze()
	telemetry.ScanDuration.Record(ctx, time.Since(start).Seconds())

	want := make([]string, len(requested))
	for i, ref := range requested {
		want[i] = ref.String()
	}
	// units that completed before a failure keep their results; the
	// view carries whatever was surveyed alongside the error
	view, verr := s.store.View(want)
	if err != nil {
		return view, err
	}
	return view, verr
}

// closure expands requested refs to the fixed point of their requires
// edges. Cycles terminate because each ref is visited once; skipped
// refs stay in the set but contribute no further edges.
func (s *Scheduler) closure(requested []registry.Ref) []registry.Ref {
	seen := make(map[registry.Ref]bool)
	queue := append([]registry.Ref(nil), requested...)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if s.skip[ref] {
			continue
		}
		if def, ok := s.catalog.Get(ref); ok {
			queue = append(queue, def.Requires...)
		}
	}
	out := make([]registry.Ref, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// runUnit fetches one resource type at most once. The first caller runs
// the fetch; every later caller blocks until it finishes and shares its
// outcome.
func (s *Scheduler) runUnit(ctx context.Context, ref registry.Ref) error {
	def, ok := s.catalog.Get(ref)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, ref)
	}
	unit := s.unit(def)
	if !unit.begin() {
		return unit.wait(ctx, s.WaitTimeout)
	}
	err := s.fetch(ctx, unit)
	unit.finish(err)
	return err
}

func (s *Scheduler) unit(def registry.Definition) *fetchUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[def.Ref()]
	if !ok {
		u = newFetchUnit(def)
		s.units[def.Ref()] = u
	}
	return u
}

func (s *Scheduler) fetch(ctx context.Context, unit *fetchUnit) error {
	if s.skip[unit.ref] {
		s.log.WithContext(ctx).Debug().
			Str("resource", unit.ref.String()).
			Msg("skipping resource type")
		return nil
	}
	for _, dep := range unit.def.Requires {
		if err := s.runUnit(ctx, dep); err != nil {
			return fmt.Errorf("dependency %s of %s: %w", dep, unit.ref, err)
		}
	}
	for _, sc := range s.contexts {
		if sc.Service != unit.ref.Service {
			continue
		}
		if unit.def.Global && !sc.First {
			continue
		}
		if err := s.fetchIn(ctx, sc, unit.def); err != nil {
			return err
		}
	}
	telemetry.UnitsCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", unit.ref.String()),
	))
	return nil
}

// fetchIn runs one resource type in one context, through its custom
// pager when registered and the generic paginate loop otherwise.
func (s *Scheduler) fetchIn(ctx context.Context, sc *Context, def registry.Definition) error {
	s.log.LogFetchStart(ctx, sc.Name, def.Service, def.Resource)

	if pager, ok := s.pagers[def.Ref()]; ok {
		return pager(ctx, &Call{
			Scan:   sc,
			Def:    def,
			Engine: s.engine,
			Store:  s.store,
			sched:  s,
		})
	}

	req := fetch.Request{
		Context:       sc.Name,
		Operation:     def.Operation,
		Params:        def.Params,
		PageMarker:    def.PageMarker,
		RequestMarker: def.RequestMarker,
	}
	pages, err := s.engine.Paginate(ctx, sc.Client, req)
	if err != nil {
		return err
	}
	count := 0
	for _, page := range pages {
		for _, record := range page.List(def.ResourceKey) {
			if err := s.put(sc, def, record); err != nil {
				return err
			}
			count++
		}
	}
	s.log.LogFetchDone(ctx, def.Service, def.Resource, count)
	telemetry.ResourcesSurveyed.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("service", def.Service),
		attribute.String("resource", def.Resource),
	))
	return nil
}

// put conforms a raw record to the definition's schema and stores it.
func (s *Scheduler) put(sc *Context, def registry.Definition, record map[string]any) error {
	kept, dropped := def.Schema.Conform(record)
	if len(dropped) > 0 {
		s.log.Debug().
			Str("resource", def.Ref().String()).
			Strs("fields", dropped).
			Msg("dropped fields outside schema")
	}
	id, ok := kept[def.IDAttribute].(string)
	if !ok || id == "" {
		return fmt.Errorf("%s record in %s missing id attribute %s",
			def.Ref(), sc.Name, def.IDAttribute)
	}
	return s.store.Put(survey.NewResource(
		id, def.Service, def.Resource, sc.Info(), survey.FromAny(kept),
	))
}
