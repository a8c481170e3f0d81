// Package configcache loads the runtime business configuration once per process.
//
// A Cache is a shared handle: construct it once at startup and pass it to every component
// that needs table names, bucket names or token settings. The first Get pulls every page
// under the root path from the parameter source; later calls return the memoized map.
package configcache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/movement-pass/public-api/internal/ports/out/paramsource"
)

// Runtime configuration keys.
const (
	KeyApplicantsTable       = "applicantsTable"
	KeyPassesTable           = "passesTable"
	KeyJWTSecret             = "jwtSecret"
	KeyJWTExpire             = "jwtExpire"
	KeyJWTIssuer             = "jwtIssuer"
	KeyJWTAudience           = "jwtAudience"
	KeyPhotoBucketName       = "photoBucketName"
	KeyPhotoUploadExpiration = "photoUploadExpiration"
)

// maxPages guards against a source that never stops returning continuation tokens.
const maxPages = 1000

type Cache struct {
	source paramsource.Source
	root   string

	group singleflight.Group

	mu     sync.RWMutex
	values Values
	loaded bool
}

// New returns a Cache reading parameters under root (e.g. "/movement-pass/v1").
func New(source paramsource.Source, root string) *Cache {
	return &Cache{
		source: source,
		root:   strings.TrimRight(root, "/"),
	}
}

// Root returns the parameter path this cache reads from.
func (c *Cache) Root() string { return c.root }

// Get returns the configuration map, loading it on first use. A failed load is not cached.
func (c *Cache) Get(ctx context.Context) (Values, error) {
	c.mu.RLock()
	if c.loaded {
		v := c.values
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	res, err, _ := c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		if c.loaded {
			v := c.values
			c.mu.RUnlock()
			return v, nil
		}
		c.mu.RUnlock()

		v, err := c.load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.values = v
		c.loaded = true
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(Values), nil
}

func (c *Cache) load(ctx context.Context) (Values, error) {
	prefix := c.root + "/"
	out := Values{}

	token := ""
	for i := 0; i < maxPages; i++ {
		page, err := c.source.FetchPage(ctx, c.root, token)
		if err != nil {
			return nil, err
		}
		for _, e := range page.Entries {
			out[strings.TrimPrefix(e.Name, prefix)] = e.Value
		}
		if page.NextToken == "" {
			return out, nil
		}
		token = page.NextToken
	}
	return nil, fmt.Errorf("configcache: %s: more than %d pages", c.root, maxPages)
}
