package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhijit-arora/cockatiel-companion/internal/router"
	"github.com/abhijit-arora/cockatiel-companion/pkg/config"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/firebase"
	"github.com/abhijit-arora/cockatiel-companion/pkg/logger"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/push"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(logger.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.IsProduction(),
		File:  cfg.LogFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase
	firebaseApp, err := firebase.InitFirebase(ctx, firebase.Options{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsPath: cfg.FirebaseCredentialsPath,
		StorageBucket:   cfg.FirebaseStorageBucket,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Initialize the document store
	store, err := config.OpenStore(ctx, cfg, firebaseApp, log)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer store.Close() // Ensure connections are closed when main exits

	var media mediastore.Store = mediastore.NewGCS(firebaseApp.StorageClient, cfg.FirebaseStorageBucket)
	if cfg.FirebaseStorageBucket == "" {
		// Firebase names a project's default bucket <project>.appspot.com.
		bucket := cfg.FirebaseProjectID + ".appspot.com"
		log.WithField("bucket", bucket).Warn("FIREBASE_STORAGE_BUCKET not set; media deletions are kept in memory")
		media = mediastore.NewMemory(bucket)
	}

	var sender push.Sender = push.Noop{}
	if cfg.PushEnabled {
		sender = push.NewFCM(firebaseApp.MessagingClient)
	}

	e, imageLabels := router.NewEcho(router.Dependencies{
		Config:   cfg,
		Store:    store,
		Media:    media,
		Push:     sender,
		Verifier: firebaseApp.AuthClient,
		Log:      log,
	})

	if watcher, ok := store.(docstore.CreateWatcher); ok && cfg.WatchImageLabels {
		go func() {
			if err := imageLabels.Watch(ctx, watcher); err != nil {
				log.WithError(err).Error("Image label watcher stopped")
			}
		}()
	} else if cfg.EventPushToken == "" {
		log.Warn("No image label delivery configured; moderation is disabled")
	}

	// Start server
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "store": cfg.StoreBackend}).Info("Server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
