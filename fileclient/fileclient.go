// Package fileclient reads raw file bytes from a configurable storage backend. A pipeline stage
// owns one Handle and creates its client lazily on first use.
package fileclient

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/utils"
)

// DefaultBackend is used when a file client config names no backend.
const DefaultBackend = "disk"

// A Client returns the bytes stored under a path.
type Client interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// A Stater is a Client that can also report whether a path exists.
type Stater interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// An OpenFunc builds a Client from the backend's attributes.
type OpenFunc func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Client, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]OpenFunc{}
)

// RegisterBackend makes a storage backend available under name.
func RegisterBackend(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, old := backends[name]; old {
		panic(errors.Errorf("trying to register two file client backends with the same name: %s", name))
	}
	if open == nil {
		panic(errors.Errorf("cannot register a nil file client backend: %s", name))
	}
	backends[name] = open
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(attributes utils.AttributeMap) (string, OpenFunc, error) {
	name := DefaultBackend
	if attributes.Has("backend") {
		name = attributes.String("backend")
	}
	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return "", nil, utils.NewConfigurationError("file_client", "unknown backend %q", name)
	}
	return name, open, nil
}

// Open creates a client directly from its attributes.
func Open(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Client, error) {
	_, open, err := lookupBackend(attributes)
	if err != nil {
		return nil, err
	}
	return open(ctx, withoutBackend(attributes), logger)
}

func withoutBackend(attributes utils.AttributeMap) utils.AttributeMap {
	out := make(utils.AttributeMap, len(attributes))
	for k, v := range attributes {
		if k != "backend" {
			out[k] = v
		}
	}
	return out
}

// A Handle holds a lazily created client. It is not safe for concurrent use; every worker gets
// its own.
type Handle struct {
	backend    string
	open       OpenFunc
	attributes utils.AttributeMap
	logger     logging.Logger

	client Client
}

// NewHandle checks that the configured backend exists and returns a handle that has not yet
// connected.
func NewHandle(attributes utils.AttributeMap, logger logging.Logger) (*Handle, error) {
	name, open, err := lookupBackend(attributes)
	if err != nil {
		return nil, err
	}
	return &Handle{
		backend:    name,
		open:       open,
		attributes: withoutBackend(attributes),
		logger:     logger,
	}, nil
}

// Backend returns the backend name of the handle.
func (h *Handle) Backend() string {
	return h.backend
}

// Client returns the handle's client, creating it if needed.
func (h *Handle) Client(ctx context.Context) (Client, error) {
	if h.client != nil {
		return h.client, nil
	}
	client, err := h.open(ctx, h.attributes, h.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s file client", h.backend)
	}
	h.logger.CDebugw(ctx, "opened file client", "backend", h.backend)
	h.client = client
	return client, nil
}

// Get reads path through the handle's client.
func (h *Handle) Get(ctx context.Context, path string) ([]byte, error) {
	client, err := h.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, path)
}

// Close releases the client if one was created. The handle can be used again afterwards.
func (h *Handle) Close() error {
	if h.client == nil {
		return nil
	}
	err := h.client.Close()
	h.client = nil
	return err
}
