package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/platform/openai"
	"github.com/dreamstudio/backend/internal/platform/redisx"
	"github.com/dreamstudio/backend/internal/platform/s3x"
	"github.com/dreamstudio/backend/internal/temporalx"
)

type Clients struct {
	Openai   openai.Client
	Storage  s3x.Service
	Redis    *redis.Client
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	storage, err := s3x.NewService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init s3 client: %w", err)
	}

	// Nil when REDIS_ADDR is unset; rate limiting then passes everything through.
	rdb := redisx.NewClient(log)

	// Nil when TEMPORAL_ADDRESS is unset; tasks then run on the inline scheduler.
	tc, err := temporalx.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}

	return Clients{
		Openai:   openaiClient,
		Storage:  storage,
		Redis:    rdb,
		Temporal: tc,
	}, nil
}
