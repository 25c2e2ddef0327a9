package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"narrator/internal/adapter/repo"
	"narrator/internal/infra"
)

// ledger prints the recorded row of one narration job.
func main() {
	var idFlag string
	flag.StringVar(&idFlag, "id", "", "narration ID to look up (UUID)")
	flag.Parse()

	id := strings.TrimSpace(idFlag)
	if _, err := uuid.Parse(id); err != nil {
		exitWithError(fmt.Errorf("-id must be a UUID: %w", err))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to create pool: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "ledger").Logger()
	ledger := repo.NewNarrationRepository(infra.NewSQLRunner(pool, logger))

	n, err := ledger.Get(ctx, id)
	if repo.IsNotFound(err) {
		exitWithError(fmt.Errorf("narration %s not recorded", id))
	}
	if err != nil {
		exitWithError(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(n); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
