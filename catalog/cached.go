package catalog

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	kindInstructor = "instructor"
	kindEnrolled   = "enrolled"
)

// Cached memoises catalog answers. Entries are dropped on expiry or when a
// membership change arrives through Invalidate.
type Cached struct {
	next  Directory
	cache *gocache.Cache
}

func NewCached(next Directory, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) IsInstructorOf(ctx context.Context, userID, courseID string) (bool, error) {
	return c.lookup(ctx, kindInstructor, userID, courseID, c.next.IsInstructorOf)
}

func (c *Cached) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	return c.lookup(ctx, kindEnrolled, userID, courseID, c.next.IsEnrolled)
}

// Invalidate drops cached answers for the user in the course. An empty userID
// drops every answer for the course.
func (c *Cached) Invalidate(courseID, userID string) {
	if userID != "" {
		c.cache.Delete(key(kindInstructor, courseID, userID))
		c.cache.Delete(key(kindEnrolled, courseID, userID))
		return
	}
	for _, kind := range []string{kindInstructor, kindEnrolled} {
		prefix := kind + "|" + courseID + "|"
		for k := range c.cache.Items() {
			if strings.HasPrefix(k, prefix) {
				c.cache.Delete(k)
			}
		}
	}
}

func (c *Cached) lookup(ctx context.Context, kind, userID, courseID string, fetch func(context.Context, string, string) (bool, error)) (bool, error) {
	k := key(kind, courseID, userID)
	if v, found := c.cache.Get(k); found {
		if ok, isBool := v.(bool); isBool {
			zerolog.Ctx(ctx).Debug().Str("key", k).Msg("catalog cache hit")
			return ok, nil
		}
	}

	ok, err := fetch(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	c.cache.SetDefault(k, ok)
	return ok, nil
}

func key(kind, courseID, userID string) string {
	return kind + "|" + courseID + "|" + userID
}
