package app

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dropspot/dropspot-api/internal/api"
	"github.com/dropspot/dropspot-api/internal/config"
	"github.com/dropspot/dropspot-api/internal/db"
	"github.com/dropspot/dropspot-api/internal/logger"
	"github.com/dropspot/dropspot-api/internal/repository"
	"github.com/dropspot/dropspot-api/internal/repository/memdao"
)

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	conf.Watch(func(e fsnotify.Event) {
		zap.L().Warn("config file changed, restart to apply", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})

	daos, err := openStorage(conf)
	if err != nil {
		return fmt.Errorf("failed to initialize storage -> %w", err)
	}

	s := api.NewServer(conf, daos)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr), zap.String("storage", conf.Storage.Driver))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

func openStorage(conf *config.AppConfig) (repository.DAOs, error) {
	if conf.Storage.Driver == config.StorageDriverMemory {
		zap.L().Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryDAOs(memdao.NewStore()), nil
	}

	dbURL := os.Getenv("DATABASE_URL")
	var (
		postgresDB *gorm.DB
		err        error
	)
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return repository.DAOs{}, fmt.Errorf("failed to initialize database -> %w", err)
	}

	return repository.NewPostgresDAOs(postgresDB, conf.Claim.LockTimeout), nil
}
