package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "sdg.response_meta"

	// CacheHeader reports whether an aggregate was served from cache.
	CacheHeader = "X-Cache"
)

type responseMeta struct {
	started time.Time
	fields  map[string]interface{}
}

// WithResponseMeta starts the per-request meta block that handlers attach to
// the response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{started: time.Now(), fields: map[string]interface{}{}})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from cache, both in the meta
// block and in the X-Cache header.
func SetCacheHit(c *gin.Context, hit bool) {
	if c == nil {
		return
	}
	metaOf(c, true).fields["cache_hit"] = hit
	if c.Writer == nil {
		return
	}
	value := "MISS"
	if hit {
		value = "HIT"
	}
	c.Header(CacheHeader, value)
}

// ExtractMeta returns a copy of the meta block with processing_time_ms filled
// in, or nil when the request carries none.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	m := metaOf(c, false)
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m.fields)+1)
	for k, v := range m.fields {
		out[k] = v
	}
	out["processing_time_ms"] = time.Since(m.started).Milliseconds()
	return out
}

func metaOf(c *gin.Context, create bool) *responseMeta {
	if v, ok := c.Get(responseMetaKey); ok {
		if m, ok := v.(*responseMeta); ok {
			return m
		}
	}
	if !create {
		return nil
	}
	m := &responseMeta{started: time.Now(), fields: map[string]interface{}{}}
	c.Set(responseMetaKey, m)
	return m
}
