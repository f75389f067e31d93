package adapter

import (
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"sync"
)

// Kind says what connections of an adapter type point at.
type Kind struct {
	// Server adapters dial Host and Port. Others open Path, where an
	// empty path means an in-memory database.
	Server bool
	// DefaultPort is used when a server connection sets no port.
	DefaultPort int
}

// FileKind is the kind of embedded, file-backed databases.
var FileKind = Kind{}

// ServerKind is the kind of network databases listening on port by default.
func ServerKind(port int) Kind {
	return Kind{Server: true, DefaultPort: port}
}

// String renders the kind for listings, e.g. "file" or "server :5432".
func (k Kind) String() string {
	if !k.Server {
		return "file"
	}
	if k.DefaultPort == 0 {
		return "server"
	}
	return "server :" + strconv.Itoa(k.DefaultPort)
}

type registration struct {
	kind    Kind
	factory func(*slog.Logger) Adapter
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

// Register makes an adapter type available to connections. Adapter
// packages call it from init.
func Register(name string, kind Kind, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = registration{kind: kind, factory: factory}
}

// Get retrieves an adapter factory by name.
func Get(name string) (func(*slog.Logger) Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r.factory, ok
}

// KindOf returns the kind an adapter type registered with.
func KindOf(name string) (Kind, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r.kind, ok
}

// NewAdapter creates an unconnected adapter for cfg.Type.
// A nil logger discards.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := KindOf(name)
	return ok
}

// Target renders where cfg points, never including the password: the
// file path for file databases and user@host:port/database for servers.
// Unknown types are treated as servers when a host is set.
func Target(cfg Config) string {
	kind, _ := KindOf(cfg.Type)
	if !kind.Server && cfg.Host == "" {
		if cfg.Path == "" {
			return ":memory:"
		}
		return cfg.Path
	}

	addr := cfg.Host
	port := cfg.Port
	if port == 0 {
		port = kind.DefaultPort
	}
	if port != 0 {
		addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	}
	if cfg.Username != "" {
		addr = cfg.Username + "@" + addr
	}
	if cfg.Database != "" {
		addr += "/" + cfg.Database
	}
	return addr
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check the connection type in leapview.yaml", e.Type, e.Available)
}
