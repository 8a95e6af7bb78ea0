package user

import (
	"github.com/smallbiznis/mindshift/internal/cache"
	"github.com/smallbiznis/mindshift/internal/config"
	"github.com/smallbiznis/mindshift/internal/user/repository"
	"github.com/smallbiznis/mindshift/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(func(cfg config.Config) (cache.UserResolverCache, error) {
		return cache.NewUserResolverCache(cfg.UserCacheSize)
	}),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
