package practice

import (
	"github.com/smallbiznis/mindshift/internal/practice/repository"
	"github.com/smallbiznis/mindshift/internal/practice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("practice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
