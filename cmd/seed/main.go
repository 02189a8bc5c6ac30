package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"messmate/internal/config"
	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
	pg "messmate/internal/infra/db/postgres"
	"messmate/internal/usecase"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

// seed provisions a mess and its first admin. Running it twice with the same
// -mess-id is harmless.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	messID := flag.String("mess-id", "", "mess id to create or update (generated when empty)")
	messName := flag.String("mess-name", "Campus Mess", "mess display name")
	address := flag.String("address", "", "mess address")
	adminSubject := flag.String("admin-subject", "", "auth subject (JWT sub) of the mess admin")
	adminEmail := flag.String("admin-email", "", "admin email")
	flag.Parse()

	if strings.TrimSpace(*adminSubject) == "" {
		log.Fatal("-admin-subject is required")
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tm := pg.NewTxManager(pool)
	messRepo := pg.NewMessRepo(pool)
	userUC := usecase.NewUserUseCase(pg.NewUserRepo(pool), tm, nil)

	admin, err := userUC.EnsureUser(ctx, *adminSubject, *adminEmail, "")
	if err != nil {
		log.Fatalf("ensure admin: %v", err)
	}

	id := *messID
	if id == "" {
		id = uuid.NewString()
	}
	mess := &model.Mess{
		ID:        id,
		Name:      *messName,
		Address:   *address,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	err = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := messRepo.Save(ctx, tx, mess); err != nil {
			return fmt.Errorf("save mess: %w", err)
		}
		return messRepo.AddAdmin(ctx, tx, admin.ID, mess.ID)
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	fmt.Printf("mess %s (%s) ready; admin user %s\n", mess.ID, mess.Name, admin.ID)
	fmt.Println("plans:")
	for _, p := range model.Plans() {
		fmt.Printf("  - %s: %d days, Rs %d\n", p.ID, p.TermDays, p.Price)
	}
}
