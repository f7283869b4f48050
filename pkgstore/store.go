// Package pkgstore resolves package references to local directories,
// downloading and unpacking registry archives on first use.
package pkgstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRegistry serves the "preview" namespace.
	DefaultRegistry = "https://packages.typst.org"
	// DefaultUserAgent is sent with registry downloads unless overridden.
	DefaultUserAgent = "inkwell/0.1"

	markerFile = ".inkwell-complete"
)

// Store maps references to unpacked package directories. It is safe for
// concurrent use; concurrent resolves of one reference share a single
// download.
type Store struct {
	client    *http.Client
	registry  string
	userAgent string
	cacheDir  string
	dataDir   string
	remote    map[string]bool
	retries   int
	logger    *log.Logger
	backoff   func() backoff.BackOff

	group    singleflight.Group
	mu       sync.RWMutex
	resolved map[Reference]string
}

// New creates a store. Without WithCacheDir packages go to
// <user cache dir>/inkwell/packages.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		client:    &http.Client{Timeout: 2 * time.Minute},
		registry:  DefaultRegistry,
		userAgent: DefaultUserAgent,
		remote:    map[string]bool{"preview": true},
		logger:    log.New(io.Discard),
		backoff:   func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		resolved:  map[Reference]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("pkgstore: locate cache dir: %w", err)
		}
		s.cacheDir = filepath.Join(base, "inkwell", "packages")
	}
	return s, nil
}

var defaultStore = sync.OnceValues(func() (*Store, error) { return New() })

// Default returns the process-wide store.
func Default() (*Store, error) { return defaultStore() }

// CacheDir returns the root that downloaded packages are stored under.
func (s *Store) CacheDir() string { return s.cacheDir }

// Dir returns the cache directory a reference occupies once downloaded.
func (s *Store) Dir(ref Reference) string {
	return filepath.Join(s.cacheDir, ref.dir())
}

// Resolve returns the local directory of ref, downloading it when it is not
// available locally. Once a reference resolves, later calls return the same
// directory without touching the filesystem or the network. Callers waiting
// on another caller's download share its outcome, unless that download was
// cancelled by its own caller's context; live callers then try again.
func (s *Store) Resolve(ctx context.Context, ref Reference) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrInvalidReference, ref, err)
	}
	for {
		s.mu.RLock()
		dir, ok := s.resolved[ref]
		s.mu.RUnlock()
		if ok {
			return dir, nil
		}

		v, err, shared := s.group.Do(ref.String(), func() (any, error) {
			dir, err := s.locate(ctx, ref)
			if err != nil {
				return "", err
			}
			s.mu.Lock()
			s.resolved[ref] = dir
			s.mu.Unlock()
			return dir, nil
		})
		if err != nil {
			if shared && ctx.Err() == nil && cancelled(err) {
				s.logger.Debug("shared package download cancelled, retrying", "ref", ref)
				continue
			}
			return "", err
		}
		if shared {
			s.logger.Debug("package resolve shared", "ref", ref)
		}
		return v.(string), nil
	}
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Store) locate(ctx context.Context, ref Reference) (string, error) {
	if s.dataDir != "" {
		dir := filepath.Join(s.dataDir, ref.dir())
		if isDir(dir) {
			return dir, nil
		}
	}
	dir := s.Dir(ref)
	if complete(dir) {
		return dir, nil
	}
	if !s.remote[ref.Namespace] {
		return "", newError(KindNotFound, ref, fmt.Errorf("namespace %q is not downloadable", ref.Namespace))
	}
	if err := s.fetch(ctx, ref, dir); err != nil {
		return "", err
	}
	s.logger.Info("package downloaded", "ref", ref, "dir", dir)
	return dir, nil
}

func (s *Store) fetch(ctx context.Context, ref Reference, dest string) error {
	url := s.registry + "/" + ref.Namespace + "/" + ref.archiveName()

	var b backoff.BackOff = &backoff.StopBackOff{}
	if s.retries > 0 {
		b = backoff.WithMaxRetries(s.backoff(), uint64(s.retries))
	}
	op := func() error {
		err := s.download(ctx, ref, url, dest)
		var perr *Error
		if errors.As(err, &perr) && !retryable(perr) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("package download failed, retrying", "ref", ref, "wait", wait, "err", err)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if err != nil && ctx.Err() != nil && !cancelled(err) {
		// a body read cut short by cancellation may not mention the context
		return newError(KindNetwork, ref, fmt.Errorf("%w: %v", ctx.Err(), err))
	}
	return err
}

func retryable(err *Error) bool {
	switch err.Kind {
	case KindNetwork:
		return true
	case KindStatus:
		return err.Status >= 500 || err.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

// download streams the archive at url into a temporary sibling of dest and
// renames it into place once the completion marker is written.
func (s *Store) download(ctx context.Context, ref Reference, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newError(KindNetwork, ref, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	s.logger.Debug("downloading package", "ref", ref, "url", url)
	resp, err := s.client.Do(req)
	if err != nil {
		return newError(KindNetwork, ref, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Ref: ref, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return &Error{Kind: KindStatus, Ref: ref, Status: resp.StatusCode}
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return newError(KindFilesystem, ref, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return newError(KindFilesystem, ref, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := extract(resp.Body, tmp); err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			perr.Ref = ref
			if ctx.Err() != nil {
				perr.Kind = KindNetwork
			}
		}
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, markerFile), nil, 0o644); err != nil {
		return newError(KindFilesystem, ref, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		if complete(dest) {
			// another process finished first
			return nil
		}
		if isDir(dest) {
			// leftover without a marker
			_ = os.RemoveAll(dest)
			err = os.Rename(tmp, dest)
		}
		if err != nil {
			return newError(KindFilesystem, ref, err)
		}
	}
	committed = true
	return nil
}

func complete(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, markerFile))
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
