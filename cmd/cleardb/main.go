// Command cleardb wipes the configured MongoDB database.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"chess-server/internal/config"
	"chess-server/internal/db"
)

func main() {
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.Driver != config.StorageMongoDB {
		log.Fatalf("Storage driver is %q, nothing to clear", cfg.Storage.Driver)
	}

	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer mongodb.Close(ctx)

	if err := mongodb.Clear(ctx); err != nil {
		log.Fatalf("Failed to clear database: %v", err)
	}
	fmt.Println("Database cleared successfully")
}
