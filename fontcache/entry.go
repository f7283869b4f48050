package fontcache

import (
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

type payloadState uint8

const (
	stateMetadata payloadState = iota
	stateLoading
	stateLoaded
)

// Entry is one registered face. Its metadata is fixed at insertion; the
// font bytes are read on the first call to Bytes and kept afterwards.
type Entry struct {
	info     Info
	index    int
	path     string
	identity uint64
	embedded bool

	mu    sync.Mutex
	cond  *sync.Cond
	state payloadState
	data  []byte
}

func newEntry(info Info, index int, path string, identity uint64, embedded bool) *Entry {
	e := &Entry{
		info:     info,
		index:    index,
		path:     path,
		identity: identity,
		embedded: embedded,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func newLoadedEntry(info Info, index int, identity uint64, data []byte, embedded bool) *Entry {
	e := newEntry(info, index, "", identity, embedded)
	e.state = stateLoaded
	e.data = data
	return e
}

// Info returns the family and variant of the face.
func (e *Entry) Info() Info { return e.info }

// Index returns the position of the face inside its source file.
func (e *Entry) Index() int { return e.index }

// Path returns the file the face was discovered in, or "" for byte sources.
func (e *Entry) Path() string { return e.path }

// Embedded reports whether the face ships with the binary.
func (e *Entry) Embedded() bool { return e.embedded }

// Key identifies the face by content and index.
func (e *Entry) Key() string { return fmt.Sprintf("%016x:%d", e.identity, e.index) }

// Loaded reports whether the font bytes are in memory.
func (e *Entry) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateLoaded
}

// Bytes returns the whole source file of the face, reading it on first use.
// Concurrent callers wait for the first loader. A failed read leaves the
// entry unloaded.
func (e *Entry) Bytes() ([]byte, error) {
	e.mu.Lock()
	for e.state == stateLoading {
		e.cond.Wait()
	}
	if e.state == stateLoaded {
		data := e.data
		e.mu.Unlock()
		return data, nil
	}
	e.state = stateLoading
	e.mu.Unlock()

	data, err := e.read()

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.cond.Broadcast()
	if err != nil {
		e.state = stateMetadata
		return nil, err
	}
	e.data = data
	e.state = stateLoaded
	return data, nil
}

func (e *Entry) read() ([]byte, error) {
	if e.path == "" {
		return nil, &FontError{Err: ErrNoPayload}
	}
	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil, &FontError{Path: e.path, Err: err}
	}
	if xxhash.Sum64(data) != e.identity {
		return nil, &FontError{Path: e.path, Err: ErrChanged}
	}
	return data, nil
}

// Face is a loaded face ready to hand to a font rasterizer.
type Face struct {
	Info  Info
	Index int
	Data  []byte
	Key   string
}

func (e *Entry) face() (Face, error) {
	data, err := e.Bytes()
	if err != nil {
		return Face{}, err
	}
	return Face{Info: e.info, Index: e.index, Data: data, Key: e.Key()}, nil
}
