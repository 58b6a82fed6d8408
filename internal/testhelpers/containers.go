// Package testhelpers starts the document store backends in Docker containers so the same
// tests can run against every docstore implementation.
//
// Container-backed stores are skipped in short mode and when no Docker provider is reachable:
//
//	for _, backend := range testhelpers.Backends() {
//	    t.Run(backend.Name, func(t *testing.T) {
//	        store := backend.Open(t)
//	        // ... test code ...
//	    })
//	}
package testhelpers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/abhijit-arora/cockatiel-companion/pkg/config"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/logger"
)

const (
	postgresImage  = "postgres:16-alpine"
	mongoImage     = "mongo:7"
	firestoreImage = "gcr.io/google.com/cloudsdktool/google-cloud-cli:emulators"

	emulatorProject = "cockatiel-test"
)

// Backend opens a fresh, empty store of one kind.
type Backend struct {
	Name string
	Open func(t *testing.T) docstore.Store
}

// Backends lists every store implementation. The in-memory store always runs.
func Backends() []Backend {
	return []Backend{
		{Name: config.BackendMemory, Open: func(*testing.T) docstore.Store { return docstore.NewMemory() }},
		{Name: config.BackendPostgres, Open: PostgresStore},
		{Name: config.BackendMongo, Open: MongoStore},
		{Name: config.BackendFirestore, Open: FirestoreStore},
	}
}

// requireDocker skips the test when containers cannot be started.
func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping container-based test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// startContainer starts req and terminates the container when the test completes.
func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s container: %v", req.Image, err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get %s host: %v", req.Image, err)
	}
	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		t.Fatalf("Failed to get %s port: %v", req.Image, err)
	}
	return container, fmt.Sprintf("%s:%s", host, port.Port())
}

// openStore connects through the same path the server uses at startup.
func openStore(ctx context.Context, t *testing.T, cfg *config.Config) docstore.Store {
	t.Helper()
	store, err := config.OpenStore(ctx, cfg, nil, logger.Discard())
	if err != nil {
		t.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Warning: failed to close %s store: %v", cfg.StoreBackend, err)
		}
	})
	return store
}

// PostgresStore starts PostgreSQL and returns a store on it.
func PostgresStore(t *testing.T) docstore.Store {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	_, addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "cockatiel",
			"POSTGRES_PASSWORD": "cockatiel",
			"POSTGRES_DB":       "cockatiel",
		},
		// The server restarts once after initdb.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})

	return openStore(ctx, t, &config.Config{
		StoreBackend: config.BackendPostgres,
		PostgresURL:  fmt.Sprintf("postgres://cockatiel:cockatiel@%s/cockatiel?sslmode=disable", addr),
	})
}

// MongoStore starts a single-node replica set, which transactions need, and returns a store
// on it.
func MongoStore(t *testing.T) docstore.Store {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	container, addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		Cmd:          []string{"--replSet", "rs0", "--bind_ip_all"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	})

	mongosh(ctx, t, container, "rs.initiate({_id: 'rs0', members: [{_id: 0, host: 'localhost:27017'}]})")
	deadline := time.Now().Add(30 * time.Second)
	for !strings.Contains(mongosh(ctx, t, container, "db.hello().isWritablePrimary"), "true") {
		if time.Now().After(deadline) {
			t.Fatalf("MongoDB replica set did not elect a primary")
		}
		time.Sleep(500 * time.Millisecond)
	}

	return openStore(ctx, t, &config.Config{
		StoreBackend:  config.BackendMongo,
		MongoURI:      fmt.Sprintf("mongodb://%s/?directConnection=true", addr),
		MongoDatabase: "cockatiel_test",
	})
}

func mongosh(ctx context.Context, t *testing.T, container testcontainers.Container, script string) string {
	t.Helper()

	exitCode, reader, err := container.Exec(ctx, []string{"mongosh", "--quiet", "--eval", script}, tcexec.Multiplexed())
	if err != nil {
		t.Fatalf("Failed to run mongosh: %v", err)
	}
	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read mongosh output: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("mongosh failed: exit=%d, output=%s", exitCode, string(output))
	}
	return string(output)
}

// FirestoreStore starts the Firestore emulator and returns a store on it. The client finds the
// emulator through FIRESTORE_EMULATOR_HOST.
func FirestoreStore(t *testing.T) docstore.Store {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	_, addr := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        firestoreImage,
		ExposedPorts: []string{"8080/tcp"},
		Cmd: []string{
			"gcloud", "emulators", "firestore", "start",
			"--host-port=0.0.0.0:8080",
			"--project=" + emulatorProject,
		},
		WaitingFor: wait.ForLog("Dev App Server is now running").WithStartupTimeout(120 * time.Second),
	})
	t.Setenv("FIRESTORE_EMULATOR_HOST", addr)

	client, err := firestore.NewClient(ctx, emulatorProject)
	if err != nil {
		t.Fatalf("Failed to create Firestore client: %v", err)
	}
	store := docstore.NewFirestore(client)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Warning: failed to close firestore store: %v", err)
		}
	})
	return store
}
