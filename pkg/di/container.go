package di

import (
	"io"

	"github.com/gin-gonic/gin"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-rest-scaffold/cache"
	"github.com/goliatone/go-rest-scaffold/config"
	"github.com/goliatone/go-rest-scaffold/controller"
	"github.com/goliatone/go-rest-scaffold/records"
	"github.com/goliatone/go-rest-scaffold/repositorycache"
	"github.com/goliatone/go-rest-scaffold/response"
	"github.com/rs/zerolog"
)

// Container holds the components shared by every resource: the cache
// service, the key serializer, the list gate and the logger. Resources
// are built from it with the package level generic factories.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	gate          *repositorycache.ListGate
	config        cache.Config
	logger        zerolog.Logger
	messages      map[string]string
	policy        controller.Policy
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to repositories, controllers and the gate.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithMessages sets the validation message catalog.
func WithMessages(messages map[string]string) Option {
	return func(c *Container) {
		c.messages = messages
	}
}

// WithPolicy sets the policy applied to every controller built by the container.
func WithPolicy(policy controller.Policy) Option {
	return func(c *Container) {
		c.policy = policy
	}
}

// NewContainer creates a container from a cache configuration. The TTL is
// always repositorycache.DefaultListTTL; any other value is overridden.
func NewContainer(cfg cache.Config, opts ...Option) (*Container, error) {
	cfg.TTL = repositorycache.DefaultListTTL

	c := &Container{
		config: cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cacheService, err := cache.NewCacheService(cfg)
	if err != nil {
		return nil, err
	}

	c.cacheService = cacheService
	c.keySerializer = cache.NewDefaultKeySerializer()
	c.gate = repositorycache.New(cacheService, c.keySerializer,
		repositorycache.WithLogger(c.logger.With().Str("component", "list_gate").Logger()),
	)

	return c, nil
}

// NewContainerWithDefaults creates a container with the default in memory
// cache.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// FromConfig creates a container from the service configuration.
func FromConfig(cfg config.Config, logger zerolog.Logger, opts ...Option) (*Container, error) {
	base := []Option{WithLogger(logger), WithMessages(cfg.Validation.Messages)}
	return NewContainer(cfg.Cache.ToCache(), append(base, opts...)...)
}

// CacheService returns the shared cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Gate returns the list gate shared by all controllers.
func (c *Container) Gate() *repositorycache.ListGate {
	return c.gate
}

// Config returns the cache configuration in effect.
func (c *Container) Config() cache.Config {
	return c.config
}

// Close releases the cache backend when it holds connections.
func (c *Container) Close() error {
	if closer, ok := c.cacheService.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// NewRecords wraps base in a records.Repository for entity.
func NewRecords[T records.Model](c *Container, base repository.Repository[T], entity string, newRecord func() T) *records.Repository[T] {
	return records.New(base, entity, newRecord,
		records.WithLogger(c.logger.With().Str("component", "records").Logger()),
	)
}

// NewController builds a controller wired to the container gate, message
// catalog, policy and logger. opts are applied last.
func NewController[T records.Model](c *Container, repo *records.Repository[T], transformer response.Transformer[T], opts ...controller.Option) *controller.Controller[T] {
	base := []controller.Option{
		controller.WithGate(c.gate),
		controller.WithMessages(c.messages),
		controller.WithLogger(c.logger.With().Str("component", "controller").Logger()),
	}
	if c.policy != nil {
		base = append(base, controller.WithPolicy(c.policy))
	}
	return controller.New(repo, transformer, append(base, opts...)...)
}

// Mount builds the repository and controller for one entity and registers
// its routes on router.
func Mount[T records.Model](c *Container, router gin.IRouter, base repository.Repository[T], entity string, newRecord func() T, transformer response.Transformer[T]) *controller.Controller[T] {
	ctrl := NewController(c, NewRecords(c, base, entity, newRecord), transformer)
	ctrl.Register(router)
	return ctrl
}
