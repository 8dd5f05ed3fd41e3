// Package app implements the application layer for parcel.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/parcel/internal/adapters/detector"
	"go.trai.ch/parcel/internal/adapters/linear"
	"go.trai.ch/parcel/internal/adapters/store"
	"go.trai.ch/parcel/internal/adapters/telemetry"
	"go.trai.ch/parcel/internal/adapters/tui"
	"go.trai.ch/parcel/internal/catalog"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/parcel/internal/engine/installer"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// tracerName is the instrumentation scope of every span parcel records.
const tracerName = "parcel"

// RendererFactory builds the renderer for a resolved output mode.
type RendererFactory func(mode detector.OutputMode, stdout, stderr io.Writer) ports.Renderer

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	transport    ports.Transport
	hasher       ports.Hasher
	openReceipts store.Opener
	logger       ports.Logger

	stdout      io.Writer
	stderr      io.Writer
	newRenderer RendererFactory
	detect      func() detector.OutputMode
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	transport ports.Transport,
	hasher ports.Hasher,
	openReceipts store.Opener,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		transport:    transport,
		hasher:       hasher,
		openReceipts: openReceipts,
		logger:       log,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		newRenderer:  defaultRenderer,
		detect:       detector.DetectEnvironment,
	}
}

// WithOutput redirects the renderers to the given streams.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithRendererFactory replaces the renderer construction.
// This is primarily used for testing.
func (a *App) WithRendererFactory(f RendererFactory) *App {
	a.newRenderer = f
	return a
}

// WithDetector replaces environment detection.
// This is primarily used for testing.
func (a *App) WithDetector(detect func() detector.OutputMode) *App {
	a.detect = detect
	return a
}

func defaultRenderer(mode detector.OutputMode, stdout, stderr io.Writer) ports.Renderer {
	if mode == detector.ModeInteractive {
		return tui.NewRenderer(tui.NewModel(), tea.WithOutput(stderr))
	}
	return linear.NewRenderer(stdout, stderr)
}

// config resolves the configuration for one command and applies its logging
// preferences.
func (a *App) config(o domain.Overrides) (*domain.Config, error) {
	cfg, err := a.configLoader.Load(o)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	if j, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		j.SetJSON(cfg.LogJSON)
	}
	return cfg, nil
}

// newInstaller builds an installer for the configured root.
func (a *App) newInstaller(cfg *domain.Config, tracer ports.Tracer) *installer.Installer {
	layout := domain.NewLayout(cfg.Root)
	return installer.New(
		catalog.New(layout.CatalogPath()),
		a.transport,
		a.openReceipts(cfg.Root),
		a.hasher,
		tracer,
		cfg,
	)
}

// quiet prepares an installer for read-only commands. Nothing is rendered.
func (a *App) quiet(ctx context.Context, o domain.Overrides) (*installer.Installer, error) {
	cfg, err := a.config(o)
	if err != nil {
		return nil, err
	}

	inst := a.newInstaller(cfg, telemetry.NewNoOpTracer())
	if err := inst.EnsureCatalog(ctx); err != nil {
		return nil, err
	}
	return inst, nil
}

// render runs work with a renderer attached: package events and finished
// spans are drawn while work runs, and the renderer is stopped when it ends.
func (a *App) render(
	ctx context.Context,
	o domain.Overrides,
	body work,
) error {
	cfg, err := a.config(o)
	if err != nil {
		return err
	}

	mode := detector.ResolveMode(a.detect(), cfg.OutputMode)
	renderer := a.newRenderer(mode, a.stdout, a.stderr)

	// Spans are forwarded to the renderer through the global provider.
	setupOTel(telemetry.NewBridge(renderer))
	inst := a.newInstaller(cfg, telemetry.NewOTelTracer(tracerName))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = zerr.With(zerr.New("install worker panicked"), "panic", fmt.Sprint(r))
			}
			_ = renderer.Stop()
		}()

		return body(ctx, inst, renderer)
	})

	return g.Wait()
}

// work is one rendered command body.
type work func(ctx context.Context, inst *installer.Installer, obs ports.Observer) error

// withCatalog makes sure a catalog is loaded before w runs.
func withCatalog(w work) work {
	return func(ctx context.Context, inst *installer.Installer, obs ports.Observer) error {
		if err := inst.EnsureCatalog(ctx); err != nil {
			return err
		}
		return w(ctx, inst, obs)
	}
}

// Update fetches the catalog and reports what changed since the persisted copy.
func (a *App) Update(ctx context.Context, o domain.Overrides) (domain.DiffReport, error) {
	var report domain.DiffReport
	err := a.render(ctx, o, func(ctx context.Context, inst *installer.Installer, _ ports.Observer) error {
		if _, err := inst.Catalog().ReadIfExists(); err != nil {
			return err
		}
		var err error
		report, err = inst.Update(ctx)
		return err
	})
	return report, err
}

// Install installs each identified package. Every identifier is attempted;
// failures are returned joined.
func (a *App) Install(ctx context.Context, o domain.Overrides, ids []string) error {
	if len(ids) == 0 {
		return domain.ErrNoPackagesSpecified
	}

	return a.render(ctx, o, withCatalog(func(ctx context.Context, inst *installer.Installer, obs ports.Observer) error {
		var errs []error
		for _, id := range ids {
			if _, err := inst.Install(ctx, id, obs); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(domain.ErrInstallFailed, errors.Join(errs...))
		}
		return nil
	}))
}

// Upgrade reinstalls every installed package whose catalog entry changed.
func (a *App) Upgrade(ctx context.Context, o domain.Overrides) ([]installer.Result, error) {
	var results []installer.Result
	err := a.render(ctx, o, withCatalog(func(ctx context.Context, inst *installer.Installer, obs ports.Observer) error {
		var err error
		results, err = inst.Upgrade(ctx, obs)
		if err != nil {
			return errors.Join(domain.ErrInstallFailed, err)
		}
		return nil
	}))
	return results, err
}

// Remove deletes each identified package and returns the names that were
// actually present.
func (a *App) Remove(ctx context.Context, o domain.Overrides, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, domain.ErrNoPackagesSpecified
	}

	var removed []string
	err := a.render(ctx, o, withCatalog(func(ctx context.Context, inst *installer.Installer, _ ports.Observer) error {
		var errs []error
		for _, id := range ids {
			ok, err := inst.Remove(ctx, id)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				removed = append(removed, id)
			}
		}
		return errors.Join(errs...)
	}))
	return removed, err
}

// Cleanup removes package directories the catalog no longer references.
func (a *App) Cleanup(ctx context.Context, o domain.Overrides) ([]string, error) {
	var removed []string
	err := a.render(ctx, o, withCatalog(func(ctx context.Context, inst *installer.Installer, obs ports.Observer) error {
		var err error
		removed, err = inst.Cleanup(ctx, obs)
		return err
	}))
	return removed, err
}

// Verify re-hashes the identified packages, or every installed package when
// no identifier is given, and returns the names that were checked.
func (a *App) Verify(ctx context.Context, o domain.Overrides, ids []string) ([]string, error) {
	inst, err := a.quiet(ctx, o)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		receipts, err := inst.Installed()
		if err != nil {
			return nil, err
		}
		for _, r := range receipts {
			ids = append(ids, r.Name)
		}
	}

	var errs []error
	for _, id := range ids {
		if err := inst.Verify(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return ids, errors.Join(errs...)
}

// setupOTel configures the OpenTelemetry SDK with the renderer bridge.
func setupOTel(bridge *telemetry.Bridge) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)
	otel.SetTracerProvider(tp)
}
