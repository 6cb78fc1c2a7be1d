package capture

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache reuses provider clients per credential so every enrichment run does
// not rebuild HTTP state. Cleared wholesale on logout.
type Cache struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

// NewCache creates a credential-keyed client cache.
func NewCache(baseURL string, timeout time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		baseURL: baseURL,
		timeout: timeout,
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// Get returns the client for an API key, creating it on first use.
func (c *Cache) Get(apiKey string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[apiKey]; ok {
		return client
	}
	client := NewClient(c.baseURL, apiKey, c.logger)
	if c.timeout > 0 {
		client.SetTimeout(c.timeout)
	}
	c.clients[apiKey] = client
	return client
}

// VerifyKey checks a credential through its cached client.
func (c *Cache) VerifyKey(ctx context.Context, apiKey string) (bool, error) {
	return c.Get(apiKey).VerifyKey(ctx)
}

// Clear drops all cached clients (logout).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = make(map[string]*Client)
	c.logger.Debug("capture client cache cleared")
}
