package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Handler produces a generation for a request. Adapters are wrapped into a
// Handler and middleware decorates it.
type Handler func(ctx context.Context, req Request) (*GenerationResult, error)

// Middleware runs around every request. It must call next to reach the
// provider, and may call it more than once.
type Middleware func(ctx context.Context, req Request, next Handler) (*GenerationResult, error)

// Client routes requests to registered adapters through a middleware chain.
// A Client is a Generator for its default provider and model.
type Client struct {
	mu              sync.RWMutex
	adapters        map[string]ProviderAdapter
	defaultProvider string
	defaultModel    string
	chain           []Middleware
}

type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.adapters[name] = adapter }
}

// WithDefaultProvider names the adapter used when a request does not pick
// one.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.defaultProvider = name }
}

// WithDefaultModel sets the model Generate asks for. Aliases are expanded.
func WithDefaultModel(model string) ClientOption {
	return func(c *Client) { c.defaultModel = ResolveModel(model) }
}

// WithMiddleware appends to the chain. The first middleware given is the
// outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.chain = append(c.chain, mw...) }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{adapters: make(map[string]ProviderAdapter)}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.defaultProvider = name
		}
	}
	return c
}

// RegisterProvider adds an adapter after construction. The first adapter
// registered on a client without a default becomes the default.
func (c *Client) RegisterProvider(name string, adapter ProviderAdapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters[name] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// Providers lists the registered provider names in sorted order.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.adapters))
	for name := range c.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// route picks the adapter for req: the provider it names, else the
// default, else the provider the model catalog lists for req.Model.
func (c *Client) route(req Request) (ProviderAdapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no provider specified and no default provider configured",
		}}
	}
	if adapter, ok := c.adapters[name]; ok {
		return adapter, nil
	}
	return nil, &ConfigurationError{SDKError: SDKError{
		Message: fmt.Sprintf("provider %q is not registered", name),
	}}
}

// Complete resolves the adapter for req and calls it through the
// middleware chain.
func (c *Client) Complete(ctx context.Context, req Request) (*GenerationResult, error) {
	adapter, err := c.route(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}
	req.Model = ResolveModel(req.Model)

	c.mu.RLock()
	chain := c.chain
	c.mu.RUnlock()

	var h Handler = adapter.Complete
	for i := len(chain) - 1; i >= 0; i-- {
		h = wrap(chain[i], h)
	}
	return h(ctx, req)
}

func wrap(mw Middleware, next Handler) Handler {
	return func(ctx context.Context, req Request) (*GenerationResult, error) {
		return mw(ctx, req, next)
	}
}

// Generate sends messages to the default provider and model.
func (c *Client) Generate(ctx context.Context, messages []Message) (*GenerationResult, error) {
	c.mu.RLock()
	model := c.defaultModel
	c.mu.RUnlock()
	return c.Complete(ctx, Request{Model: model, Messages: messages})
}

// Close closes every adapter that holds resources and reports all failures.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var errs []error
	for name, adapter := range c.adapters {
		closer, ok := adapter.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
