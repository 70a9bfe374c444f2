package viewcache

import (
	"context"
)

// Namespaces for cached list/detail responses. Every mutation bumps the
// namespaces whose rendered views it could have staled.
const (
	NSRecipes    = "recipes"
	NSActivities = "activities"
	NSExercises  = "exercises"
	NSRoutines   = "routines"
	NSDaily      = "daily"
)

// Cache is a rendered-response cache with namespace-level invalidation.
// Bump moves a namespace to a new version, making every previously stored
// key unreachable; the TTL reaps the orphaned entries.
type Cache interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool)
	Set(ctx context.Context, namespace, key string, value []byte)
	Bump(ctx context.Context, namespaces ...string)
}
