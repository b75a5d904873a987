package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Cache stores encoded operation results. Implementations must be safe for
// concurrent use. A miss returns ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key Key) (payload []byte, ok bool, err error)
	Put(ctx context.Context, key Key, payload []byte) error
}

// Key identifies one operation result.
type Key struct {
	Op      string
	Dialect string
	// Input is the SQL text followed by any operation arguments and the
	// nesting limit.
	Input string
}

// String joins the key parts with NUL separators.
func (k Key) String() string {
	return k.Op + "\x00" + k.Dialect + "\x00" + k.Input
}

func (a *Analyzer) newKey(op, dialectName, sql string, args ...any) Key {
	var b strings.Builder
	b.WriteString(sql)
	// The limit decides between a result and ErrMaxDepth.
	fmt.Fprintf(&b, "\x00depth=%d", a.maxDepth)
	for _, arg := range args {
		// Maps marshal with sorted keys, so equal arguments encode equally.
		enc, err := json.Marshal(arg)
		if err != nil {
			continue
		}
		b.WriteByte(0)
		b.Write(enc)
	}
	return Key{Op: op, Dialect: strings.ToLower(strings.TrimSpace(dialectName)), Input: b.String()}
}

// cached looks key up and decodes a hit into dst.
func (a *Analyzer) cached(ctx context.Context, key Key, dst any) bool {
	if a.cache == nil {
		return false
	}
	payload, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("cache read failed", "op", key.Op, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		a.logger.Warn("cache entry undecodable", "op", key.Op, "error", err)
		return false
	}
	return true
}

func (a *Analyzer) store(ctx context.Context, key Key, v any) {
	if a.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.cache.Put(ctx, key, payload); err != nil {
		a.logger.Warn("cache write failed", "op", key.Op, "error", err)
	}
}
