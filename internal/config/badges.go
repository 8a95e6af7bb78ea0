package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BadgeCatalogFile is the optional badges.yml document. Entries extend or
// override the compiled-in badge catalog without a schema migration.
type BadgeCatalogFile struct {
	Version string            `mapstructure:"version"`
	Badges  []BadgeDefinition `mapstructure:"badges"`
}

type BadgeDefinition struct {
	ID          string           `mapstructure:"id"`
	Name        string           `mapstructure:"name"`
	Description string           `mapstructure:"description"`
	Icon        string           `mapstructure:"icon"`
	Criteria    map[string]int64 `mapstructure:"criteria"`
}

type BadgeCatalogHolder struct {
	current atomic.Value // holds BadgeCatalogFile
}

// NewBadgeCatalogHolder reads badges.yml from BadgeCatalogPath, /etc/mindshift
// or the working directory and reloads it on change. A missing file yields an
// empty document.
func NewBadgeCatalogHolder(cfg Config, log *zap.Logger) (*BadgeCatalogHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.badges")

	v := viper.New()
	v.SetConfigName("badges")
	v.SetConfigType("yml")
	if path := strings.TrimSpace(cfg.BadgeCatalogPath); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/mindshift")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MINDSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &BadgeCatalogHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(BadgeCatalogFile{})
		return holder, nil
	}

	file, err := decodeBadgeCatalog(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(file)
	log.Info("badge catalog loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.String("version", file.Version),
		zap.Int("badges", len(file.Badges)),
	)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBadgeCatalog(v)
		if err != nil {
			log.Warn("badge catalog reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("badge catalog reloaded", zap.String("file", e.Name), zap.String("version", updated.Version))
	})

	return holder, nil
}

// NewStaticBadgeCatalogHolder wraps an in-memory document.
func NewStaticBadgeCatalogHolder(file BadgeCatalogFile) *BadgeCatalogHolder {
	holder := &BadgeCatalogHolder{}
	holder.current.Store(file)
	return holder
}

func (h *BadgeCatalogHolder) Get() BadgeCatalogFile {
	if h == nil {
		return BadgeCatalogFile{}
	}
	file, _ := h.current.Load().(BadgeCatalogFile)
	return file
}

func decodeBadgeCatalog(v *viper.Viper) (BadgeCatalogFile, error) {
	var file BadgeCatalogFile
	if err := v.Unmarshal(&file); err != nil {
		return BadgeCatalogFile{}, err
	}
	if err := validateBadgeCatalog(file); err != nil {
		return BadgeCatalogFile{}, err
	}
	return file, nil
}

func validateBadgeCatalog(file BadgeCatalogFile) error {
	seen := make(map[string]struct{}, len(file.Badges))
	for i, badge := range file.Badges {
		id := strings.TrimSpace(badge.ID)
		if id == "" {
			return fmt.Errorf("badges[%d].id cannot be empty", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("badges[%d].id %q is duplicated", i, id)
		}
		seen[id] = struct{}{}
		if len(badge.Criteria) == 0 {
			return fmt.Errorf("badges[%d].criteria cannot be empty", i)
		}
	}
	return nil
}
