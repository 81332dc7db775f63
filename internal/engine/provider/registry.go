package provider

import (
	"fmt"

	cerrors "surface/internal/core/errors"
)

// Namer is implemented by providers that report a stable short name,
// used as a metric label.
type Namer interface {
	ProviderName() string
}

// Name returns the provider's short name, falling back to its Go type.
func Name(p MetadataProvider) string {
	if n, ok := p.(Namer); ok {
		return n.ProviderName()
	}
	return fmt.Sprintf("%T", p)
}

// Registry selects the metadata provider responsible for a module file.
// Selection order is registration order; the first provider claiming the
// path wins.
type Registry struct {
	providers []MetadataProvider
}

func NewRegistry(providers ...MetadataProvider) *Registry {
	return &Registry{providers: providers}
}

func (r *Registry) Register(p MetadataProvider) {
	if p != nil {
		r.providers = append(r.providers, p)
	}
}

// For returns the provider for path, or NOT_SUPPORTED when no registered
// provider recognizes the module format.
func (r *Registry) For(path string) (MetadataProvider, error) {
	for _, p := range r.providers {
		if p.CanOpen(path) {
			return p, nil
		}
	}
	return nil, cerrors.Newf(cerrors.CodeNotSupported, "no metadata provider for %q", path)
}

// CanOpen reports whether any registered provider handles path.
func (r *Registry) CanOpen(path string) bool {
	for _, p := range r.providers {
		if p.CanOpen(path) {
			return true
		}
	}
	return false
}
