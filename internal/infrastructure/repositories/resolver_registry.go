package repositories

import (
	"slices"

	domainRepos "github.com/rios0rios0/bom/internal/domain/repositories"
)

// ResolverRegistry manages all registered dependency resolver implementations.
// Detection follows registration order.
type ResolverRegistry struct {
	resolvers map[string]domainRepos.ResolverRepository
	order     []string
}

// NewResolverRegistry creates an empty resolver registry.
func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{
		resolvers: make(map[string]domainRepos.ResolverRepository),
	}
}

// Register adds a resolver under its name.
func (r *ResolverRegistry) Register(resolver domainRepos.ResolverRepository) {
	if _, exists := r.resolvers[resolver.Name()]; !exists {
		r.order = append(r.order, resolver.Name())
	}
	r.resolvers[resolver.Name()] = resolver
}

// Get returns the resolver with the given name, or nil if not registered.
func (r *ResolverRegistry) Get(name string) domainRepos.ResolverRepository {
	return r.resolvers[name]
}

// Detect returns the first resolver recognising projectDir, or nil.
func (r *ResolverRegistry) Detect(projectDir string) domainRepos.ResolverRepository {
	for _, name := range r.order {
		if resolver := r.resolvers[name]; resolver.Detect(projectDir) {
			return resolver
		}
	}
	return nil
}

// Names returns the sorted list of registered resolver names.
func (r *ResolverRegistry) Names() []string {
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}
