package middleware

import (
	"github.com/claimpilot/backend/internal/util"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/claimpilot/backend/pkg/ai"
	oai "github.com/claimpilot/backend/pkg/ai/ollama"
	gai "github.com/claimpilot/backend/pkg/ai/openai"
	"github.com/claimpilot/backend/pkg/logger"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

type App struct {
	Queue        *amqp091.Channel
	Key          *keyfunc.Keyfunc
	S3           *s3.Client
	AiClient     ai.RecordAIClient
	MasterAPIKey string
	MasterUserID int64
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// newAnalysisAIClient builds the configured AI adapter wrapped in the model
// fallback chain. Built per request so model metrics are scoped to one
// analysis rather than the process lifetime.
func newAnalysisAIClient() ai.RecordAIClient {
	adapter := util.GetEnv("AI_ADAPTER")
	var inner ai.RecordAIClient

	switch adapter {
	case "ollama":
		client, err := oai.NewRecordOllamaClient(oai.NewRecordOllamaClientParams{
			ChatModel: util.GetEnv("AI_CHAT_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		inner = client
	default:
		inner = gai.NewRecordOpenAIClient(gai.NewRecordOpenAIClientParams{
			ChatModel: util.GetEnv("AI_CHAT_MODEL"),

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 8)),
		})
	}

	return ai.NewFallbackClient(ai.NewFallbackClientParams{
		Inner: inner,
	})
}

func AppContextMiddleware(
	queue *amqp091.Channel,
	key *keyfunc.Keyfunc,
	s3 *s3.Client,
	masterAPIKey string,
	masterUserID int64,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				Queue:        queue,
				Key:          key,
				S3:           s3,
				AiClient:     newAnalysisAIClient(),
				MasterAPIKey: masterAPIKey,
				MasterUserID: masterUserID,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
