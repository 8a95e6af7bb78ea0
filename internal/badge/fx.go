package badge

import (
	"github.com/smallbiznis/mindshift/internal/badge/repository"
	"github.com/smallbiznis/mindshift/internal/badge/rules"
	"github.com/smallbiznis/mindshift/internal/badge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("badge.service",
	fx.Provide(rules.NewCatalog),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
