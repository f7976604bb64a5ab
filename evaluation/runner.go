package evaluation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/survey"
	"github.com/yairfalse/kartta/telemetry"
)

// Runner evaluates checks over a frozen survey. Results are memoized on
// the resources: a (resource, check) pair is computed once no matter how
// many times the runner visits it.
type Runner struct {
	registry *Registry
	logger   *telemetry.Logger
}

// Summary aggregates one evaluation run.
type Summary struct {
	Resources int
	Evaluated int
	Passed    int
	Failed    int
}

// NewRunner builds a runner over the given check registry.
func NewRunner(reg *Registry) *Runner {
	return &Runner{
		registry: reg,
		logger:   telemetry.NewLogger("evaluation"),
	}
}

// Run evaluates every resource in the store against the checks its
// catalog definition names. Resources whose definitions name no checks
// count as passed.
func (r *Runner) Run(ctx context.Context, store *survey.Store, catalog *registry.Catalog) (Summary, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "evaluation.run")
	defer span.End()

	var sum Summary
	cur := store.Resources()
	for cur.Next() {
		res := cur.Resource()
		sum.Resources++

		def, ok := catalog.Get(registry.Ref{Service: res.Service, Resource: res.Type})
		if !ok || len(def.Checks) == 0 {
			sum.Passed++
			continue
		}
		if err := r.Evaluate(ctx, res, def.Checks); err != nil {
			return sum, err
		}
		sum.Evaluated++
		if res.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	if err := cur.Err(); err != nil {
		return sum, err
	}

	r.logger.WithContext(ctx).Info().
		Int("resources", sum.Resources).
		Int("evaluated", sum.Evaluated).
		Int("passed", sum.Passed).
		Int("failed", sum.Failed).
		Msg("evaluation complete")
	return sum, nil
}

// Evaluate runs the named checks on one resource, skipping any that
// already have a recorded result.
func (r *Runner) Evaluate(ctx context.Context, res *survey.Resource, names []string) error {
	ctx, span := telemetry.Tracer.Start(ctx, "evaluation.resource",
		trace.WithAttributes(
			attribute.String("resource.id", res.ID),
			attribute.String("resource.type", res.Service+"."+res.Type)))
	defer span.End()

	ref := registry.Ref{Service: res.Service, Resource: res.Type}
	for _, name := range names {
		if _, done := res.ResultFor(name); done {
			continue
		}
		fn, err := r.registry.Get(ref, name)
		if err != nil {
			return err
		}
		result, err := fn(res)
		if err != nil {
			return fmt.Errorf("check %s on %s/%s/%s: %w", name, res.Service, res.Type, res.ID, err)
		}
		res.AddResult(survey.CheckResult{
			Name:    name,
			Message: result.Message,
			Passed:  result.Passed,
		})
		telemetry.ChecksEvaluated.Add(ctx, 1, metric.WithAttributes(
			attribute.String("check", name),
			attribute.Bool("passed", result.Passed),
		))
		if !result.Passed {
			r.logger.WithContext(ctx).Warn().
				Str("check", name).
				Str("resource_id", res.ID).
				Str("message", result.Message).
				Msg("check failed")
		}
	}
	return nil
}
