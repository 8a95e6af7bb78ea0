package cache

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	lru "github.com/hashicorp/golang-lru"
)

const defaultUserCacheSize = 10000

// UserResolverCache stores hot-path lookups from identity provider subject to
// internal user ID. Entries never go stale because the mapping is immutable
// once a user row exists.
type UserResolverCache interface {
	GetUserID(externalID string) (snowflake.ID, bool)
	SetUserID(externalID string, userID snowflake.ID)
	Forget(externalID string)
	Len() int
}

type userResolverCache struct {
	users *lru.Cache
}

// NewUserResolverCache returns a bounded in-memory cache. A non-positive size
// falls back to the default.
func NewUserResolverCache(size int) (UserResolverCache, error) {
	if size <= 0 {
		size = defaultUserCacheSize
	}
	users, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &userResolverCache{users: users}, nil
}

func (c *userResolverCache) GetUserID(externalID string) (snowflake.ID, bool) {
	value, ok := c.users.Get(cacheKey(externalID))
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok
}

func (c *userResolverCache) SetUserID(externalID string, userID snowflake.ID) {
	key := cacheKey(externalID)
	if key == "" || userID == 0 {
		return
	}
	c.users.Add(key, userID)
}

func (c *userResolverCache) Forget(externalID string) {
	c.users.Remove(cacheKey(externalID))
}

func (c *userResolverCache) Len() int {
	return c.users.Len()
}

func cacheKey(externalID string) string {
	return strings.TrimSpace(externalID)
}
