package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/grpc-user-service/config"
	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	pginfra "github.com/oksasatya/grpc-user-service/internal/infrastructure/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, pginfra.PoolOptions{
		DSN:             cfg.PostgresDSN(),
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := pginfra.NewUserRepository(pool)

	demo := []entity.User{
		{Name: "Alice Johnson", Email: "alice@example.com", Age: 28, Phone: "13800000001", Status: entity.StatusActive},
		{Name: "Bob Smith", Email: "bob@example.com", Age: 34, Phone: "13800000002", Status: entity.StatusActive},
		{Name: "Carol White", Email: "carol@example.com", Age: 41, Status: entity.StatusActive},
	}

	for i := range demo {
		u := demo[i]
		if err := repo.Insert(ctx, &u); err != nil {
			log.Printf("skip %s: %v", u.Email, err)
			continue
		}
		fmt.Printf("seeded user: id=%d email=%s\n", u.ID, u.Email)
	}
}
