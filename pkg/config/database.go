package config

import (
	"context"
	"fmt"
	"time"

	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/firebase"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenStore connects the document store selected by STORE_BACKEND. fb is only used by the
// firestore backend.
func OpenStore(ctx context.Context, cfg *Config, fb *firebase.App, log logrus.FieldLogger) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case BackendFirestore:
		if fb == nil {
			return nil, fmt.Errorf("firestore backend needs an initialized firebase app")
		}
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to Firestore")
		return docstore.NewFirestore(client), nil

	case BackendMongo:
		client, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")
		return docstore.NewMongo(client, cfg.MongoDatabase), nil

	case BackendPostgres:
		db, err := initPostgres(cfg.PostgresURL, cfg.IsProduction())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		store, err := docstore.NewPostgres(db)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to PostgreSQL")
		return store, nil

	case BackendMemory:
		log.Warn("Using the in-memory store; data is lost on restart")
		return docstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

// initPostgres opens the PostgreSQL connection using GORM.
func initPostgres(connStr string, quiet bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if quiet {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(postgres.Open(connStr), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// initMongo connects to MongoDB and pings the primary.
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}
