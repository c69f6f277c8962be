package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"tenant-storage-core/backend/internal/platform/apperr"
)

// Config carries provider settings. Each provider reads the fields it needs.
type Config struct {
	Provider      string
	Bucket        string
	LocalRoot     string
	SigningKey    string
	PublicBaseURL string

	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	AzureAccountName string
	AzureAccountKey  string
	AzureServiceURL  string

	Clock clock.Clock
}

// Opener constructs a Backend from cfg.
type Opener func(ctx context.Context, cfg Config) (Backend, error)

var (
	mu      sync.RWMutex
	openers = make(map[string]Opener)
)

// Register makes a provider available by name. It panics if name is empty or
// already registered. Providers call it from init.
func Register(name string, open Opener) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || open == nil {
		panic("backend: Register with empty name or nil opener")
	}
	if _, dup := openers[name]; dup {
		panic("backend: Register called twice for provider " + name)
	}
	openers[name] = open
}

// New opens the provider named by cfg.Provider. An unknown provider is a configuration error.
func New(ctx context.Context, cfg Config) (Backend, error) {
	mu.RLock()
	open, ok := openers[cfg.Provider]
	mu.RUnlock()
	if !ok {
		return nil, apperr.Configuration("backend.New", fmt.Sprintf("unknown storage provider %q (registered: %v)", cfg.Provider, Providers()))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	b, err := open(ctx, cfg)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConfiguration {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindConfiguration, "backend.New", "open storage provider "+cfg.Provider, err)
	}
	return b, nil
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(openers))
	for name := range openers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
