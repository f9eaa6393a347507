package cache

// ScopedKeyer wraps a Keyer with a prefix so that several tenants, or
// several workflows, can share one cache without sharing entries.
//
//	wfKeyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "wf:42:")
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

// DiagramKey generates a prefixed diagram key.
func (k *ScopedKeyer) DiagramKey(snapshotHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.inner.DiagramKey(snapshotHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(diagramHash, opts)
}
