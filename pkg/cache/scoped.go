package cache

// ScopedKeyer prefixes every key of an inner Keyer. The CLI scopes keys by
// build version so a shared Redis never serves layouts from an older packer.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), buildinfo.Version+":")
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

// MatrixKey generates a prefixed key for matrix caching.
func (k *ScopedKeyer) MatrixKey(source string, opts MatrixKeyOpts) string {
	return k.prefix + k.inner.MatrixKey(source, opts)
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(matrixHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(matrixHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
