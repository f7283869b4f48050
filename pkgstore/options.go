package pkgstore

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets the client used for registry downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		if c != nil {
			s.client = c
		}
	}
}

// WithRegistry sets the registry base URL.
func WithRegistry(base string) Option {
	return func(s *Store) {
		if base != "" {
			s.registry = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every download.
func WithUserAgent(ua string) Option {
	return func(s *Store) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithCacheDir sets the directory downloaded packages are extracted into.
func WithCacheDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.cacheDir = dir
		}
	}
}

// WithDataDir sets a directory of locally managed packages that is searched
// before the cache.
func WithDataDir(dir string) Option {
	return func(s *Store) { s.dataDir = dir }
}

// WithRemoteNamespaces sets the namespaces that may be downloaded. Packages in
// other namespaces must already exist locally.
func WithRemoteNamespaces(ns ...string) Option {
	return func(s *Store) {
		s.remote = map[string]bool{}
		for _, n := range ns {
			s.remote[n] = true
		}
	}
}

// WithRetries retries failed downloads up to n more times with exponential
// backoff. Not-found responses and archive errors are not retried.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
