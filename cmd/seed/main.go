// Command seed populates a development database with a demo brand, product,
// license key, and license. It is idempotent: rerunning it reuses whatever
// already exists instead of failing.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/keymint/licensing/internal/config"
	"github.com/keymint/licensing/internal/event"
	"github.com/keymint/licensing/internal/repository/postgres"
	"github.com/keymint/licensing/internal/service"
	"github.com/keymint/licensing/migrations"
	"github.com/keymint/licensing/pkg/database"
	apperrors "github.com/keymint/licensing/pkg/errors"
	pkgkafka "github.com/keymint/licensing/pkg/kafka"
	"github.com/keymint/licensing/pkg/logger"
)

const (
	demoBrandName   = "RankMath"
	demoBrandSlug   = "rankmath"
	demoProductName = "RankMath Pro"
	demoProductSlug = "rankmath-pro"
	demoCustomer    = "john@example.com"
)

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New("licensing-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgCfg := database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 5,
		MinConns: 1,
	}
	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	defer producer.Close()

	brandRepo := postgres.NewBrandRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	keyRepo := postgres.NewLicenseKeyRepository(pool)
	licenseRepo := postgres.NewLicenseRepository(pool)

	eventProducer := event.NewProducer(producer, log)
	brands := service.NewBrandService(brandRepo, productRepo, eventProducer, log)
	keys := service.NewLicenseKeyService(keyRepo, brandRepo, eventProducer, log)
	licenses := service.NewLicenseService(licenseRepo, keyRepo, productRepo, eventProducer, log)

	// Brand. On the first run the API keys are printed; they are not
	// retrievable afterwards.
	brand, err := brands.GetBrandBySlug(ctx, demoBrandSlug)
	switch {
	case err == nil:
		log.Info("brand already exists", slog.String("slug", brand.Slug))
	case errors.Is(err, apperrors.ErrNotFound):
		brand, err = brands.RegisterBrand(ctx, &service.RegisterBrandInput{Name: demoBrandName, Slug: demoBrandSlug})
		if err != nil {
			return fmt.Errorf("register brand: %w", err)
		}
		log.Info("brand registered",
			slog.String("id", brand.ID),
			slog.String("provisioning_key", brand.ProvisioningKey),
			slog.String("validation_key", brand.ValidationKey),
		)
	default:
		return fmt.Errorf("look up brand: %w", err)
	}

	// Product.
	product, err := brands.GetProductByBrandAndSlug(ctx, brand.ID, demoProductSlug)
	switch {
	case err == nil:
		log.Info("product already exists", slog.String("slug", product.Slug))
	case errors.Is(err, apperrors.ErrNotFound):
		product, err = brands.CreateProduct(ctx, brand.ID, &service.CreateProductInput{
			Name: demoProductName,
			Slug: demoProductSlug,
		})
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		log.Info("product created", slog.String("id", product.ID))
	default:
		return fmt.Errorf("look up product: %w", err)
	}

	// License key for the demo customer.
	existing, err := keys.GetLicenseKeysByCustomer(ctx, brand.ID, demoCustomer)
	if err != nil {
		return fmt.Errorf("list license keys: %w", err)
	}

	var keyID string
	if len(existing) > 0 {
		keyID = existing[0].ID
		log.Info("license key already exists", slog.String("key", existing[0].Key))
	} else {
		key, err := keys.CreateLicenseKey(ctx, brand.ID, &service.CreateLicenseKeyInput{CustomerEmail: demoCustomer})
		if err != nil {
			return fmt.Errorf("create license key: %w", err)
		}
		keyID = key.ID
		log.Info("license key created", slog.String("key", key.Key))
	}

	// One-year license.
	now := time.Now().UTC()
	license, err := licenses.CreateLicense(ctx, &service.CreateLicenseInput{
		LicenseKeyID: keyID,
		ProductID:    product.ID,
		StartsAt:     now,
		ExpiresAt:    now.AddDate(1, 0, 0),
	})
	switch {
	case err == nil:
		log.Info("license created", slog.String("id", license.ID), slog.Time("expires_at", license.ExpiresAt))
	case errors.Is(err, apperrors.ErrAlreadyExists):
		log.Info("license already exists")
	default:
		return fmt.Errorf("create license: %w", err)
	}

	log.Info("seed complete")
	return nil
}
