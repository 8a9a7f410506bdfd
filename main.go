package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/cloudgroundcontrol/botfleet/pkg/fleet"
	"github.com/cloudgroundcontrol/botfleet/pkg/http/rest"
	"github.com/cloudgroundcontrol/botfleet/pkg/recall"
	"github.com/cloudgroundcontrol/botfleet/pkg/session"
	"github.com/cloudgroundcontrol/botfleet/pkg/summarize"
	"github.com/cloudgroundcontrol/botfleet/pkg/upload"
)

func getEnvOrFail(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("%s not set", key)
	}
	return val
}

func main() {
	// Get env variables
	port := getEnvOrFail("APP_PORT")
	recallURL := getEnvOrFail("RECALL_API_URL")
	recallToken := getEnvOrFail("RECALL_API_TOKEN")
	publicURL := getEnvOrFail("PUBLIC_URL")
	webhookSecret := getEnvOrFail("WEBHOOK_SECRET")
	botName := getEnvOrFail("BOT_NAME")
	logLevel := os.Getenv("LOG_LEVEL")

	// Get log verbosity
	var verbosity log.Lvl
	switch strings.ToLower(logLevel) {
	case "debug":
		verbosity = log.DEBUG
	case "info":
		verbosity = log.INFO
	case "warn":
		verbosity = log.WARN
	case "error":
		fallthrough
	default:
		verbosity = log.ERROR
	}
	log.SetLevel(verbosity)
	log.SetHeader("(${short_file}:${line}) ${time_rfc3339} ${level}: ")

	// Create provider client. Every bot it creates reports back to the
	// three webhook endpoints below, secret included.
	provider := recall.NewClient(
		recall.Credentials{BaseURL: recallURL, Token: recallToken},
		recall.WebhookEndpoints{
			Transcription: fmt.Sprintf("%s/webhook/transcription?secret=%s", publicURL, webhookSecret),
			Events:        fmt.Sprintf("%s/webhook/events?secret=%s", publicURL, webhookSecret),
			Chat:          fmt.Sprintf("%s/webhook/chat?secret=%s", publicURL, webhookSecret),
		},
	)

	// Create completion proxy client
	anthropicURL := os.Getenv("ANTHROPIC_API_URL")
	if anthropicURL == "" {
		anthropicURL = "https://api.anthropic.com"
	}
	completions := summarize.NewClient(anthropicURL, os.Getenv("ANTHROPIC_API_KEY"))

	// Create S3 archiver only if the environment variables are not empty
	s3Region := os.Getenv("S3_REGION")
	s3Bucket := os.Getenv("S3_BUCKET")
	var uploader upload.Uploader
	if s3Region != "" && s3Bucket != "" {
		var err error
		uploader, err = upload.NewS3Uploader(upload.S3Config{
			Region:    s3Region,
			Bucket:    s3Bucket,
			Directory: os.Getenv("S3_DIRECTORY"),
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	// Initialise session store and fleet service
	store := session.NewStore()
	service := fleet.NewService(store, provider, completions, botName)
	service.SetUploader(uploader)

	// Initialise controllers
	fleetController := rest.NewFleetController(service)
	webhookController := rest.NewWebhookController(store, webhookSecret)

	// Initialise server
	e := echo.New()

	// Attach middlewares
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "(${host}) ${time_rfc3339} ${level}: ${method} ${uri} ${status} ${error}\n",
	}))

	// Attach handlers
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Welcome to CGC")
	})
	e.GET("/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// Attach fleet control handlers
	e.POST("/api/add-bots", fleetController.AddBots)
	e.POST("/api/stop-recording", fleetController.StopRecording)
	e.POST("/api/clear-bots", fleetController.ClearBots)
	e.POST("/api/reset-bots", fleetController.ResetBots)
	e.GET("/api/recording-state", fleetController.RecordingState)
	e.POST("/api/summarize", fleetController.Summarize)

	// Attach webhook handlers
	e.POST("/webhook/transcription", webhookController.Transcription)
	e.POST("/webhook/events", webhookController.Events)
	e.POST("/webhook/chat", webhookController.Chat)

	// Start server
	e.Logger.Fatal(e.Start(":" + port))
}
