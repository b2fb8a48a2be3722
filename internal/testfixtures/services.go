package testfixtures

import (
	"context"
	"log/slog"
	"testing"

	"github.com/example/parking-ledger/internal/app"
	"github.com/example/parking-ledger/internal/application"
)

// ServiceFactory builds fully wired registries over a fresh store for each test.
type ServiceFactory struct {
	Engine      Engine
	GraceWindow int64
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a factory using the memory engine, the default grace
// window and a discarding logger.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Engine:      EngineMemory,
		GraceWindow: application.DefaultGraceWindow,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Logger == nil {
		factory.Logger = QuietLogger()
	}
	return factory
}

// WithEngine selects the persistence engine.
func WithEngine(engine Engine) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Engine = engine
	}
}

// WithGraceWindow overrides the check-in grace window in seconds.
func WithGraceWindow(seconds int64) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.GraceWindow = seconds
	}
}

// WithLogger overrides the logger handed to every registry.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewServices opens a store for the configured engine and wires the registries over it.
func (f *ServiceFactory) NewServices(tb testing.TB) *app.Services {
	tb.Helper()
	return app.NewServices(NewStore(tb, f.Engine), app.ServiceOptions{
		GraceWindow: f.GraceWindow,
		Logger:      f.Logger,
	})
}

// RegisterSpace registers fixture through the space registry on behalf of its owner.
func RegisterSpace(tb testing.TB, services *app.Services, fixture SpaceFixture) application.Space {
	tb.Helper()
	space, err := services.Spaces.Register(context.Background(), application.Principal(fixture.Owner), fixture.Input())
	if err != nil {
		tb.Fatalf("failed to register space fixture: %v", err)
	}
	return space
}

// ReportViolation files fixture through the violation registry on behalf of its reporter.
func ReportViolation(tb testing.TB, services *app.Services, fixture ViolationFixture) application.Violation {
	tb.Helper()
	violation, err := services.Violations.Report(context.Background(), application.Principal(fixture.Reporter), fixture.Input())
	if err != nil {
		tb.Fatalf("failed to report violation fixture: %v", err)
	}
	return violation
}
