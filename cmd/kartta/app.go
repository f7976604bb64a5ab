package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/yairfalse/kartta/config"
	"github.com/yairfalse/kartta/evaluation"
	"github.com/yairfalse/kartta/fetch"
	"github.com/yairfalse/kartta/providers/aws"
	"github.com/yairfalse/kartta/registry"
	"github.com/yairfalse/kartta/scan"
	"github.com/yairfalse/kartta/storage"
	"github.com/yairfalse/kartta/survey"
	"github.com/yairfalse/kartta/telemetry"
)

// app wires config, catalog, and checks into something the commands can
// run scans through.
type app struct {
	cfg     *config.Config
	catalog *registry.Catalog
	checks  *evaluation.Registry
	log     *telemetry.Logger
}

// scanOutcome is what one full scan produced.
type scanOutcome struct {
	// View holds only the requested resource types.
	View *survey.Store
	// Evaluation summarizes the checks run over the full survey.
	Evaluation evaluation.Summary
	// Revision is the archive revision, zero when archiving is off.
	Revision int64
}

// newApp loads configuration and telemetry. The returned shutdown
// flushes telemetry exporters and must run before exit.
func newApp(ctx context.Context) (*app, func(context.Context) error, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Provider != "aws" {
		return nil, nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}

	shutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "kartta",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		OTELEndpoint:   cfg.Telemetry.OTELEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	catalog := registry.Builtin()
	if cfg.Definitions != "" {
		user, err := registry.Load(cfg.Definitions)
		if err != nil {
			return nil, nil, err
		}
		catalog.Merge(user)
	}
	if err := applyParamOverrides(catalog, cfg.Params); err != nil {
		return nil, nil, err
	}

	checks := evaluation.NewRegistry()
	if cfg.Checks != "" {
		if err := evaluation.NewLoader(cfg.Checks, checks).Load(ctx); err != nil {
			return nil, nil, err
		}
	}

	return &app{
		cfg:     cfg,
		catalog: catalog,
		checks:  checks,
		log:     telemetry.NewLogger("kartta"),
	}, shutdown, nil
}

// applyParamOverrides merges configured call parameters over the
// catalog's definitions, keyed by "service.resource".
func applyParamOverrides(catalog *registry.Catalog, overrides map[string]map[string]any) error {
	for refStr, params := range overrides {
		ref, err := registry.ParseRef(refStr)
		if err != nil {
			return fmt.Errorf("params override: %w", err)
		}
		def, ok := catalog.Get(ref)
		if !ok {
			return fmt.Errorf("params override for undefined type %s", ref)
		}
		merged := make(map[string]any, len(def.Params)+len(params))
		for k, v := range def.Params {
			merged[k] = v
		}
		for k, v := range params {
			merged[k] = v
		}
		def.Params = merged
		if err := catalog.Add(def); err != nil {
			return err
		}
	}
	return nil
}

// skipRefs expands the configured skip list: a bare service name covers
// every defined type of that service.
func (a *app) skipRefs() ([]registry.Ref, error) {
	var refs []registry.Ref
	for _, entry := range a.cfg.Skip {
		if !strings.Contains(entry, ".") {
			for _, def := range a.catalog.All() {
				if def.Service == entry {
					refs = append(refs, def.Ref())
				}
			}
			continue
		}
		ref, err := registry.ParseRef(entry)
		if err != nil {
			return nil, fmt.Errorf("skip entry: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// requestedRefs resolves the configured resource list, falling back to
// every catalog definition within the configured services.
func (a *app) requestedRefs() ([]registry.Ref, error) {
	if len(a.cfg.Resources) > 0 {
		refs := make([]registry.Ref, 0, len(a.cfg.Resources))
		for _, s := range a.cfg.Resources {
			ref, err := registry.ParseRef(s)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}

	wantService := make(map[string]bool)
	for _, s := range a.cfg.Services {
		wantService[s] = true
	}
	var refs []registry.Ref
	for _, def := range a.catalog.All() {
		if len(wantService) > 0 && !wantService[def.Service] {
			continue
		}
		refs = append(refs, def.Ref())
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no resource types selected")
	}
	return refs, nil
}

// runScan performs one end to end scan: resolve contexts, fetch, run
// checks, and archive.
func (a *app) runScan(ctx context.Context) (*scanOutcome, error) {
	refs, err := a.requestedRefs()
	if err != nil {
		return nil, err
	}

	// dependencies may live in services nobody requested directly
	closure := a.catalog.Closure(refs)
	serviceSet := make(map[string]bool)
	for _, ref := range closure {
		serviceSet[ref.Service] = true
	}
	services := make([]string, 0, len(serviceSet))
	for s := range serviceSet {
		services = append(services, s)
	}

	accounts := make([]aws.Account, 0, len(a.cfg.Accounts))
	for _, acct := range a.cfg.Accounts {
		accounts = append(accounts, aws.Account{
			Name:    acct.Name,
			Profile: acct.Profile,
			Role:    acct.Role,
			Regions: acct.Regions,
		})
	}
	contexts, err := aws.BuildContexts(ctx, accounts, services)
	if err != nil {
		return nil, err
	}

	sched := scan.NewScheduler(a.catalog, contexts, fetch.NewEngine())
	aws.RegisterPagers(sched)
	skips, err := a.skipRefs()
	if err != nil {
		return nil, err
	}
	sched.Skip(skips...)

	view, err := sched.Scan(ctx, refs)
	if err != nil {
		return nil, err
	}

	summary, err := evaluation.NewRunner(a.checks).Run(ctx, sched.Store(), a.catalog)
	if err != nil {
		return nil, err
	}

	outcome := &scanOutcome{View: view, Evaluation: summary}
	if a.cfg.StorageDir != "" {
		archive, err := storage.NewArchive(a.cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		defer archive.Close()
		rev, err := archive.RecordScan(sched.Store())
		if err != nil {
			return nil, fmt.Errorf("archiving scan: %w", err)
		}
		outcome.Revision = rev
	}

	a.log.WithContext(ctx).Info().
		Int("resources", outcome.Evaluation.Resources).
		Int("failed", outcome.Evaluation.Failed).
		Int64("revision", outcome.Revision).
		Msg("scan complete")
	return outcome, nil
}
