package database

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNewMongo_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx := context.Background()
	db, err := NewMongo(ctx, &MongoConfig{URI: uri, Database: "event_invitations_test", ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer db.Close(ctx)

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if db.Database().Name() != "event_invitations_test" {
		t.Errorf("unexpected database name %s", db.Database().Name())
	}
}

func TestNewMongo_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewMongo(ctx, &MongoConfig{
		URI:            "mongodb://invalid-host-that-does-not-exist:27017/?serverSelectionTimeoutMS=500",
		Database:       "x",
		ConnectTimeout: 500 * time.Millisecond,
	})
	if err == nil {
		t.Error("Expected error for unreachable mongo, got nil")
	}
}
