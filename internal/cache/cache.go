// Package cache memoizes loaded programs and evaluation records in
// process.
//
// Results sits in front of the SQLite record: lookups consult the LRU
// first and fall back to the store, and recorded evaluations are written
// through. Programs keeps compiled programs keyed by the digest of their
// source so scenarios sharing a program file compile it once.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/roach88/consteval/internal/canon"
	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/loader"
	"github.com/roach88/consteval/internal/store"
)

// Default sizes.
const (
	DefaultResults  = 1024
	DefaultPrograms = 64
)

// Stats counts cache traffic.
type Stats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
	Len    int `json:"len"`
}

// Results memoizes evaluation records by evaluation key.
//
// Thread-safety: safe for concurrent use.
type Results struct {
	recent *lru.Cache
	store  *store.Store

	mu     sync.Mutex
	hits   int
	misses int
}

// NewResults creates a result cache holding up to size records. st may be
// nil, in which case nothing outlives the process.
func NewResults(size int, st *store.Store) (*Results, error) {
	recent, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &Results{recent: recent, store: st}, nil
}

// Lookup returns the evaluation recorded under key.
func (c *Results) Lookup(ctx context.Context, key string) (store.Evaluation, bool, error) {
	if cached, ok := c.recent.Get(key); ok {
		c.count(true)
		return cached.(store.Evaluation), true, nil
	}
	if c.store == nil {
		c.count(false)
		return store.Evaluation{}, false, nil
	}
	ev, err := c.store.ReadEvaluation(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		c.count(false)
		return store.Evaluation{}, false, nil
	}
	if err != nil {
		return store.Evaluation{}, false, err
	}
	c.count(true)
	c.recent.Add(key, ev)
	return ev, true, nil
}

// Record caches ev and writes it to the store.
func (c *Results) Record(ctx context.Context, ev store.Evaluation) error {
	c.recent.Add(ev.Key, ev)
	if c.store == nil {
		return nil
	}
	_, err := c.store.WriteEvaluation(ctx, ev)
	return err
}

// Stats returns the traffic counters.
func (c *Results) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Len: c.recent.Len()}
}

func (c *Results) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Program is a compiled program with the digest of its source.
type Program struct {
	Path    string
	Digest  string
	Program *ir.Program
}

// Programs memoizes compiled programs by source digest.
//
// Thread-safety: safe for concurrent use. Compiled programs are read-only.
type Programs struct {
	compiled *lru.Cache
}

// NewPrograms creates a program cache holding up to size programs.
func NewPrograms(size int) (*Programs, error) {
	compiled, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create program cache: %w", err)
	}
	return &Programs{compiled: compiled}, nil
}

// Load reads and compiles the program at path, reusing an earlier
// compilation of identical source.
func (c *Programs) Load(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	digest := canon.ProgramDigest(src)
	if cached, ok := c.compiled.Get(digest); ok {
		p := cached.(*Program)
		return &Program{Path: path, Digest: digest, Program: p.Program}, nil
	}
	prog, err := loader.LoadBytes(path, src)
	if err != nil {
		return nil, err
	}
	p := &Program{Path: path, Digest: digest, Program: prog}
	c.compiled.Add(digest, p)
	return p, nil
}

// Len returns the number of cached programs.
func (c *Programs) Len() int {
	return c.compiled.Len()
}
