package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
	"github.com/bazaar-mobile/api/internal/platform/config"
	"github.com/bazaar-mobile/api/internal/platform/idempotency"
	"github.com/bazaar-mobile/api/internal/platform/jobs"
	"github.com/bazaar-mobile/api/internal/platform/observability"
	"github.com/bazaar-mobile/api/internal/platform/textutil"
	"github.com/bazaar-mobile/api/internal/repositories"
	firestorerepo "github.com/bazaar-mobile/api/internal/repositories/firestore"
	"github.com/bazaar-mobile/api/internal/repositories/memory"
	"github.com/bazaar-mobile/api/internal/services"
)

const (
	sanitizerLimit     = 500
	pubsubProbeTimeout = 2 * time.Second
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Cart     services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	System   services.SystemService
}

// Container wires repositories, services and shared infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Idempotency  idempotency.Store
	Money        *textutil.MoneyFormatter

	closers []func(context.Context) error
}

// Option customises container construction.
type Option func(*options)

type options struct {
	registry    repositories.Registry
	idempotency idempotency.Store
	events      services.OrderEventPublisher
	logger      *zap.Logger
	clock       func() time.Time
	build       services.BuildInfo
}

// WithRegistry injects a repository registry, bypassing the configured storage backend.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithIdempotencyStore overrides the store backing replay protection.
func WithIdempotencyStore(store idempotency.Store) Option {
	return func(o *options) { o.idempotency = store }
}

// WithEventPublisher overrides the order event publisher.
func WithEventPublisher(publisher services.OrderEventPublisher) Option {
	return func(o *options) { o.events = publisher }
}

// WithLogger sets the logger used for service events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the clock shared by all services.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithBuildInfo records the version reported by readiness checks.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *options) { o.build = build }
}

// NewContainer constructs the runtime dependencies for the configured storage backend.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.build.Environment == "" {
		o.build.Environment = cfg.Security.Environment
	}

	c := &Container{
		Config: cfg,
		Money:  textutil.NewMoneyFormatter(cfg.Display.Currency, cfg.Display.Locale),
	}

	reg := o.registry
	store := o.idempotency
	events := o.events

	if reg == nil {
		switch cfg.Storage.Backend {
		case config.StorageBackendMemory, "":
			reg = memory.NewRegistry()
			if store == nil {
				store = idempotency.NewMemoryStore()
			}
		case config.StorageBackendFirestore:
			var probes []repositories.DependencyProbe
			if events == nil {
				publisher, probe, closeFn, err := newPubSubPublisher(ctx, cfg.PubSub)
				if err != nil {
					return nil, err
				}
				if publisher != nil {
					events = publisher
					probes = append(probes, probe)
					c.closers = append(c.closers, closeFn)
				}
			}

			provider := pfirestore.NewProvider(cfg.Firestore)
			fsReg, err := firestorerepo.NewRegistry(provider, probes...)
			if err != nil {
				_ = c.Close(ctx)
				return nil, fmt.Errorf("build firestore registry: %w", err)
			}
			reg = fsReg
			if store == nil {
				store = idempotency.NewFirestoreStore(provider)
			}
		default:
			return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
		}
	}
	if store == nil {
		store = idempotency.NewMemoryStore()
	}

	c.Repositories = reg
	c.Idempotency = store
	c.closers = append(c.closers, reg.Close)

	svc, err := buildServices(reg, events, o)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close releases repository clients and publishers in reverse construction order.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func buildServices(reg repositories.Registry, events services.OrderEventPublisher, o options) (Services, error) {
	logger := observability.EventLogger(o.logger)
	sanitizer := textutil.NewPlainTextSanitizer(sanitizerLimit)

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Clock:      o.clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:      reg.Carts(),
		Orders:     reg.Orders(),
		Tracking:   reg.TrackingEvents(),
		UnitOfWork: reg,
		Events:     events,
		Sanitizer:  sanitizer,
		Clock:      o.clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Tracking:   reg.TrackingEvents(),
		UnitOfWork: reg,
		Events:     events,
		Sanitizer:  sanitizer,
		Clock:      o.clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		Health: reg.Health(),
		Clock:  o.clock,
		Build:  o.build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}

	return Services{
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Orders:   orderSvc,
		System:   systemSvc,
	}, nil
}

// newPubSubPublisher returns a nil publisher when no topic is configured.
func newPubSubPublisher(ctx context.Context, cfg config.PubSubConfig) (services.OrderEventPublisher, repositories.DependencyProbe, func(context.Context) error, error) {
	topicName := strings.TrimSpace(cfg.OrderEventsTopic)
	if topicName == "" || strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, repositories.DependencyProbe{}, nil, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, repositories.DependencyProbe{}, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicName)
	topic.EnableMessageOrdering = true

	publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
	if err != nil {
		topic.Stop()
		_ = client.Close()
		return nil, repositories.DependencyProbe{}, nil, err
	}

	probe := repositories.DependencyProbe{
		Name:    "pubsub",
		Timeout: pubsubProbeTimeout,
		Check: func(ctx context.Context) error {
			ok, err := topic.Exists(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("pubsub topic %q not found", topicName)
			}
			return nil
		},
	}
	closeFn := func(context.Context) error {
		topic.Stop()
		return client.Close()
	}
	return publisher, probe, closeFn, nil
}
