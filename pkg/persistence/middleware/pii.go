package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/ivy/pkg/ports"
)

// Mask replaces the value of every matching key.
const Mask = "***"

type piiMiddleware struct {
	ports.Datastore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values stored under keys matching
// the patterns: record fields themselves, and keys of nested maps inside any value.
// The in-memory observable keeps the real value; only the stored copy is masked.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Datastore) ports.Datastore {
		return &piiMiddleware{Datastore: next, patterns: patterns}
	}
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) mask(value any) any {
	sub, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(sub))
	for k, v := range sub {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.mask(v)
	}
	return out
}

func (m *piiMiddleware) PutField(ctx context.Context, id, key string, value any) error {
	if m.matches(key) {
		return m.Datastore.PutField(ctx, id, key, Mask)
	}
	return m.Datastore.PutField(ctx, id, key, m.mask(value))
}

func (m *piiMiddleware) InsertAt(ctx context.Context, id string, offset int, value any) error {
	return m.Datastore.InsertAt(ctx, id, offset, m.mask(value))
}

func (m *piiMiddleware) SetAt(ctx context.Context, id string, offset int, value any) error {
	return m.Datastore.SetAt(ctx, id, offset, m.mask(value))
}
