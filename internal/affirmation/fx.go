package affirmation

import (
	"github.com/smallbiznis/mindshift/internal/affirmation/repository"
	"github.com/smallbiznis/mindshift/internal/affirmation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("affirmation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
