package repositories

import (
	"go.uber.org/dig"

	domainRepos "github.com/rios0rios0/bom/internal/domain/repositories"
	cargoRepo "github.com/rios0rios0/bom/internal/infrastructure/repositories/cargo"
	goRepo "github.com/rios0rios0/bom/internal/infrastructure/repositories/golang"
	npmRepo "github.com/rios0rios0/bom/internal/infrastructure/repositories/npm"
	termRepo "github.com/rios0rios0/bom/internal/infrastructure/repositories/terminal"
	tfRepo "github.com/rios0rios0/bom/internal/infrastructure/repositories/terraform"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register resolver registry; registration order is the detection order
	if err := container.Provide(func() *ResolverRegistry {
		reg := NewResolverRegistry()
		reg.Register(cargoRepo.NewResolverRepository())
		reg.Register(goRepo.NewResolverRepository())
		reg.Register(npmRepo.NewResolverRepository())
		reg.Register(tfRepo.NewResolverRepository())
		return reg
	}); err != nil {
		return err
	}

	if err := container.Provide(func() domainRepos.ReportRepository {
		return termRepo.NewReportRepository()
	}); err != nil {
		return err
	}

	return nil
}
