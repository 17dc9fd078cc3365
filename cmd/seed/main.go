package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/Aciila/go-ddd-boilerplate/config"
	"github.com/Aciila/go-ddd-boilerplate/internal/application"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/storage"
	"github.com/Aciila/go-ddd-boilerplate/pkg/helpers"
)

var demoUsers = []application.CreateUserInput{
	{Email: "ada@example.com", Name: "Ada Lovelace"},
	{Email: "grace@example.com", Name: "Grace Hopper"},
	{Email: "alan@example.com", Name: "Alan Turing"},
	{Email: "edsger@example.com", Name: "Edsger Dijkstra"},
}

func main() {
	printToken := flag.Bool("token", false, "print a development bearer token for write endpoints")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	svc := application.NewUserService(store.Users, application.WithLogger(logger))
	for _, in := range demoUsers {
		u, err := svc.Create(ctx, in)
		if domain.IsKind(err, domain.KindAlreadyExists) {
			fmt.Printf("exists: %s\n", in.Email)
			continue
		}
		if err != nil {
			log.Fatalf("failed to seed %s: %v", in.Email, err)
		}
		fmt.Printf("seeded user: id=%s email=%s name=%s\n", u.ID, u.Email, u.Name)
	}

	if *printToken {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is empty; cannot sign a token")
		}
		jwt := helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
		token, exp, err := jwt.GenerateAccessToken("seed", "users:write")
		if err != nil {
			log.Fatalf("failed to sign token: %v", err)
		}
		fmt.Printf("bearer token (expires %s):\n%s\n", exp.Format("2006-01-02 15:04 MST"), token)
	}
}
