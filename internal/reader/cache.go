package reader

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/state"
)

const (
	DefaultCacheTTL = 30 * time.Minute
	cacheCleanup    = 10 * time.Minute
)

// Cache keeps parsed sequences keyed by book identity so that reopening a
// book, or reopening it under another name, skips parsing.
type Cache struct {
	c    *gocache.Cache
	opts Options
	log  *zap.Logger
}

func NewCache(ttl time.Duration, opts Options, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{c: gocache.New(ttl, cacheCleanup), opts: opts, log: log}
}

// Load returns the book id and parsed sequence of filename.
func (c *Cache) Load(filename string) (string, *book.Sequence, error) {
	id, err := state.ComputeHash(filename)
	if err != nil {
		return "", nil, &ParseError{Kind: IOFailure, Path: filename, Err: err}
	}
	if v, ok := c.c.Get(id); ok {
		c.log.Debug("Parsed book from cache", zap.String("book", id))
		return id, v.(*book.Sequence), nil
	}
	seq, err := Parse(filename, c.opts, c.log)
	if err != nil {
		return id, nil, err
	}
	c.c.Set(id, seq, gocache.DefaultExpiration)
	return id, seq, nil
}

func (c *Cache) Len() int {
	return c.c.ItemCount()
}
