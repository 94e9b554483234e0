package cache

// ScopedKeyer wraps a Keyer with a prefix so separate deployments can
// share one cache backend without colliding. The CLI and server scope
// their keys when a shared Redis instance serves several installations.
//
// Example usage:
//
//	// Keys isolated per deployment
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "lab-7:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MSAKey generates a prefixed key for MSA caching.
func (k *ScopedKeyer) MSAKey(graphHash string) string {
	return k.prefix + k.inner.MSAKey(graphHash)
}

// GFAKey generates a prefixed key for GFA export caching.
func (k *ScopedKeyer) GFAKey(graphHash string) string {
	return k.prefix + k.inner.GFAKey(graphHash)
}

// RenderKey generates a prefixed key for Graphviz artifact caching.
func (k *ScopedKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphHash, opts)
}
