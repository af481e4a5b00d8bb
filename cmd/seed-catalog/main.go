package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type namedEntry struct {
	Name   string `yaml:"name"`
	Active *bool  `yaml:"active"`
}

func (e namedEntry) isActive() bool {
	return e.Active == nil || *e.Active
}

type reasonEntry struct {
	namedEntry `yaml:",inline"`
	Category   domain.ReasonCategory `yaml:"category"`
}

type seedCatalog struct {
	FirstLevel  []namedEntry  `yaml:"first_level"`
	SecondLevel []namedEntry  `yaml:"second_level"`
	ThirdLevel  []reasonEntry `yaml:"third_level"`
	Sectors     []string      `yaml:"sectors"`
	Products    []string      `yaml:"products"`
}

// seeder is the subset of the repository the seed writes through.
type seeder interface {
	UpsertFirstLevel(ctx context.Context, name string, active bool) error
	UpsertSecondLevel(ctx context.Context, name string, active bool) error
	UpsertThirdLevel(ctx context.Context, name string, category domain.ReasonCategory, active bool) error
	UpsertSector(ctx context.Context, name string) error
	UpsertProduct(ctx context.Context, name string) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting catalog seed")

	raw := defaultCatalog
	if path := strings.TrimSpace(os.Getenv("CATALOG_SEED_FILE")); path != "" {
		raw, err = os.ReadFile(path)
		if err != nil {
			log.Error("failed to read seed file", "path", path, "error", err)
			return
		}
	}

	catalog, err := parseCatalog(raw)
	if err != nil {
		log.Error("invalid seed file", "error", err)
		return
	}

	ctx := context.Background()
	if err := db.RunMigrations(ctx, cfg); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := seed(ctx, repository.New(pool), catalog); err != nil {
		log.Error("catalog seed failed", "error", err)
		return
	}

	log.Info("catalog seed complete",
		"firstLevel", len(catalog.FirstLevel),
		"secondLevel", len(catalog.SecondLevel),
		"thirdLevel", len(catalog.ThirdLevel),
		"sectors", len(catalog.Sectors),
		"products", len(catalog.Products),
	)
}

func parseCatalog(raw []byte) (seedCatalog, error) {
	var c seedCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return seedCatalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	for _, e := range append(append([]namedEntry{}, c.FirstLevel...), c.SecondLevel...) {
		if strings.TrimSpace(e.Name) == "" {
			return seedCatalog{}, fmt.Errorf("disposition without a name")
		}
	}
	for _, r := range c.ThirdLevel {
		if strings.TrimSpace(r.Name) == "" {
			return seedCatalog{}, fmt.Errorf("reason without a name")
		}
		if !r.Category.Valid() {
			return seedCatalog{}, fmt.Errorf("reason %q has unknown category %q", r.Name, r.Category)
		}
	}
	if !hasNamed(c.FirstLevel, domain.FirstLevelContacted) || !hasNamed(c.FirstLevel, domain.FirstLevelNotContacted) {
		return seedCatalog{}, fmt.Errorf("first level must contain %q and %q", domain.FirstLevelContacted, domain.FirstLevelNotContacted)
	}
	if !hasNamed(c.SecondLevel, domain.SecondLevelNoSale) {
		return seedCatalog{}, fmt.Errorf("second level must contain %q", domain.SecondLevelNoSale)
	}
	return c, nil
}

func hasNamed(entries []namedEntry, want string) bool {
	for _, e := range entries {
		if domain.IsNamed(e.Name, want) {
			return true
		}
	}
	return false
}

func seed(ctx context.Context, s seeder, c seedCatalog) error {
	for _, e := range c.FirstLevel {
		if err := s.UpsertFirstLevel(ctx, strings.TrimSpace(e.Name), e.isActive()); err != nil {
			return err
		}
	}
	for _, e := range c.SecondLevel {
		if err := s.UpsertSecondLevel(ctx, strings.TrimSpace(e.Name), e.isActive()); err != nil {
			return err
		}
	}
	for _, r := range c.ThirdLevel {
		if err := s.UpsertThirdLevel(ctx, strings.TrimSpace(r.Name), r.Category, r.isActive()); err != nil {
			return err
		}
	}
	for _, name := range c.Sectors {
		if err := s.UpsertSector(ctx, strings.TrimSpace(name)); err != nil {
			return err
		}
	}
	for _, name := range c.Products {
		if err := s.UpsertProduct(ctx, strings.TrimSpace(name)); err != nil {
			return err
		}
	}
	return nil
}
