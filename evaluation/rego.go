package evaluation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/survey"
	"github.com/yairfalse/kartta/telemetry"
)

// RegoCheck compiles a Rego module into a CheckFunc. The module is
// queried at data.kartta.checks and must yield an object with a boolean
// "passed" and optionally a string "message"; anything else is
// ErrBadResult at evaluation time.
func RegoCheck(ctx context.Context, name, module string) (CheckFunc, error) {
	prepared, err := rego.New(
		rego.Query("data.kartta.checks"),
		rego.Module(name+".rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compiling check %s: %w", name, err)
	}

	return func(res *survey.Resource) (Result, error) {
		rs, err := prepared.Eval(context.Background(), rego.EvalInput(res.Record()))
		if err != nil {
			return Result{}, fmt.Errorf("evaluating check %s: %w", name, err)
		}
		return parseRegoResult(name, rs)
	}, nil
}

func parseRegoResult(name string, rs rego.ResultSet) (Result, error) {
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Result{}, fmt.Errorf("%w: check %s produced no result", ErrBadResult, name)
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Result{}, fmt.Errorf("%w: check %s yielded %T, want object", ErrBadResult, name, rs[0].Expressions[0].Value)
	}
	passed, ok := obj["passed"].(bool)
	if !ok {
		return Result{}, fmt.Errorf("%w: check %s missing boolean passed", ErrBadResult, name)
	}
	message, _ := obj["message"].(string)
	return Result{Passed: passed, Message: message}, nil
}

// Loader reads a directory of Rego check modules into a Registry. Files
// are named service.resource.check.rego, so ec2.instances.encrypted.rego
// registers the check "encrypted" on ec2.instances.
type Loader struct {
	bundlePath string
	registry   *Registry
	logger     *telemetry.Logger
}

// NewLoader builds a loader over a check bundle directory.
func NewLoader(bundlePath string, reg *Registry) *Loader {
	return &Loader{
		bundlePath: bundlePath,
		registry:   reg,
		logger:     telemetry.NewLogger("check-loader"),
	}
}

// Load compiles and registers every .rego file under the bundle path.
func (l *Loader) Load(ctx context.Context) error {
	ctx, span := telemetry.Tracer.Start(ctx, "evaluation.load_checks",
		trace.WithAttributes(attribute.String("bundle_path", l.bundlePath)))
	defer span.End()

	if _, err := os.Stat(l.bundlePath); os.IsNotExist(err) {
		return fmt.Errorf("check bundle path does not exist: %s", l.bundlePath)
	}

	count := 0
	err := filepath.Walk(l.bundlePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".rego") {
			return nil
		}
		if err := l.loadFile(ctx, path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.WithContext(ctx).Info().
		Int("count", count).
		Str("bundle_path", l.bundlePath).
		Msg("loaded check modules")
	return nil
}

func (l *Loader) loadFile(ctx context.Context, path string) error {
	ref, name, err := parseCheckFilename(filepath.Base(path))
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("reading check %s: %w", path, err)
	}
	fn, err := RegoCheck(ctx, name, string(content))
	if err != nil {
		return err
	}
	l.registry.Register(ref, name, fn)

	l.logger.WithContext(ctx).Debug().
		Str("check", name).
		Str("resource", ref.String()).
		Msg("registered check")
	return nil
}

func parseCheckFilename(base string) (registry.Ref, string, error) {
	stem := strings.TrimSuffix(base, ".rego")
	parts := strings.Split(stem, ".")
	if len(parts) != 3 {
		return registry.Ref{}, "", fmt.Errorf("check file %q must be named service.resource.check.rego", base)
	}
	return registry.Ref{Service: parts[0], Resource: parts[1]}, parts[2], nil
}
