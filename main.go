// File: brightcall/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brightcall/config"
	"brightcall/cron"
	"brightcall/database"
	recordsRepo "brightcall/database/repository/records"
	"brightcall/handlers"
	"brightcall/routes"
	"brightcall/services/notification"
	"brightcall/services/registry"
	"brightcall/services/scheduling"
	"brightcall/services/tasks"
	"brightcall/services/telephony"
	"brightcall/services/tools"
	"brightcall/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// Session registry: in-memory by default, Redis-backed when configured.
	var callRegistry registry.Registry
	if config.AppConfig.UseRedisRegistry {
		utils.InitSessionCache()
		callRegistry = registry.NewRedisRegistry(utils.GetSessionCacheClient())
	} else {
		callRegistry = registry.NewMemoryRegistry()
	}

	telephonyClient := telephony.NewClient(
		config.AppConfig.TwilioAccountSID,
		config.AppConfig.TwilioAuthToken,
		config.AppConfig.TwilioFromNumber,
	)

	notificationService := notification.NewService(
		config.AppConfig.NotifyWebhookURL,
		config.AppConfig.NotifySMSNumber,
		telephonyClient,
	)

	// Bookings route through the async worker when the queue is enabled,
	// otherwise they are delivered inline.
	var notifier notification.Service = notificationService
	if config.AppConfig.UseNotifyQueue {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisNotifyQueueDB,
		})
		defer asynqClient.Close()
		notifier = tasks.NewQueueNotifier(asynqClient)
		cron.InitNotifyWorker(notificationService)
	}

	schedulingStore := scheduling.NewStore()
	dispatcher := tools.NewDispatcher(schedulingStore, notifier)

	var callRecords recordsRepo.CallRecordRepository
	if database.MongoClient != nil {
		callRecords = recordsRepo.NewMongoRecordRepo()
	}

	callHandler := handlers.NewCallHandler(callRegistry, telephonyClient, config.AppConfig.PublicBaseURL)
	twimlHandler := handlers.NewTwiMLHandler(config.AppConfig.PublicBaseURL)
	mediaStreamHandler := handlers.NewMediaStreamHandler(callRegistry, dispatcher)
	statusHandler := handlers.NewStatusHandler(callRegistry, callRecords, config.AppConfig.TwilioFromNumber)
	recordsHandler := handlers.NewRecordsHandler(callRecords)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		TriggerCallHandler: callHandler.TriggerCall,
		CallStatusHandler:  statusHandler.Handle,

		TwiMLHandler:       twimlHandler.Handle,
		MediaStreamHandler: mediaStreamHandler.Handle,

		GetCallRecordHandler:   recordsHandler.GetByID,
		ListCallRecordsHandler: recordsHandler.ListByCorrelation,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
