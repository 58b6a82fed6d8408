package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// Options configures InitFirebase.
type Options struct {
	ProjectID       string
	CredentialsPath string
	StorageBucket   string
}

// App holds the initialized Firebase app and the clients the server uses.
type App struct {
	FirebaseApp     *firebase.App
	AuthClient      *auth.Client
	StorageClient   *storage.Client
	MessagingClient *messaging.Client
}

// InitFirebase initializes the Firebase application with its auth, storage and messaging
// clients. Without a credentials path the application default credentials are used.
func InitFirebase(ctx context.Context, opts Options) (*App, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsPath != "" {
		if _, err := os.Stat(opts.CredentialsPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase credentials file not found at %s", opts.CredentialsPath)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsPath))
	}

	conf := &firebase.Config{ProjectID: opts.ProjectID, StorageBucket: opts.StorageBucket}
	firebaseApp, err := firebase.NewApp(ctx, conf, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase messaging client: %w", err)
	}

	return &App{
		FirebaseApp:     firebaseApp,
		AuthClient:      authClient,
		StorageClient:   storageClient,
		MessagingClient: messagingClient,
	}, nil
}

// Firestore opens a Firestore client. The caller closes it.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.FirebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}
