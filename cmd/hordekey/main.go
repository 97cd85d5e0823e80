package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"hordeclient/internal/infra"
	"hordeclient/internal/infra/credentials"
)

// hordekey persists the Horde API key into the integration token store, so the
// daemon can run without HORDE_API_KEY in its environment.
func main() {
	var keyFlag string
	flag.StringVar(&keyFlag, "key", "", "Horde API key (falls back to HORDE_API_KEY)")
	flag.Parse()

	_ = godotenv.Load()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("HORDE_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "horde API key is required via -key or HORDE_API_KEY")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "hordekey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.SetHordeAPIKey(ctxExec, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist horde api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Horde API key stored successfully")
}
