package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/db"
	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/tasks"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Router    *gin.Engine
	Clients   Clients
	Repos     Repos
	Tasks     Tasks
	Services  Services
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	taskset, err := wireTasks(theDB, log, reposet, clients)
	if err != nil {
		log.Sync()
		return nil, err
	}

	serviceset := wireServices(theDB, log, reposet, clients, taskset)
	handlerset := wireHandlers(log, serviceset)
	middlewareset := wireMiddleware(log, clients)
	router := wireRouter(handlerset, middlewareset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Clients:  clients,
		Repos:    reposet,
		Tasks:    taskset,
		Services: serviceset,
	}, nil
}

// Start launches the task worker and registers the periodic triggers. The
// deadline scan and the verification sweeper fire on fixed cron schedules
// regardless of which scheduler backs them.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Tasks.Worker != nil {
		if err := a.Tasks.Worker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}

	if err := a.Tasks.Scheduler.Schedule(ctx, tasks.TaskScanOverdueGoals, tasks.CronDeadlineScan); err != nil {
		return fmt.Errorf("schedule deadline scan: %w", err)
	}
	if err := a.Tasks.Scheduler.Schedule(ctx, tasks.TaskCleanupAbandonedVerifications, tasks.CronCleanup); err != nil {
		return fmt.Errorf("schedule verification cleanup: %w", err)
	}
	return nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}
		if a.Tasks.Inline != nil {
			a.Tasks.Inline.Close()
		}
		if a.Clients.Temporal != nil {
			a.Clients.Temporal.Close()
		}
		if a.Log != nil {
			a.Log.Sync()
		}
	})
}
