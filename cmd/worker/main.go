package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/taxdividend/reclaim-backend/internal/config"
	"github.com/taxdividend/reclaim-backend/internal/database"
	"github.com/taxdividend/reclaim-backend/internal/repository"
	"github.com/taxdividend/reclaim-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	dividendRepo := repository.NewDividendRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Create services
	taxRuleService := service.NewTaxRuleService(taxRuleRepo)
	calculationService := service.NewTaxCalculationService(dividendRepo, taxRuleService, userRepo)

	recalculate := func() {
		result, err := calculationService.RecalculateUnsubmittedDividends()
		if err != nil {
			log.Printf("Recalculation run failed: %v", err)
			return
		}
		log.Printf("Recalculation run: %d processed, %d success, %d failures, total reclaimable %s",
			result.ProcessedCount, result.SuccessCount, result.FailureCount, result.TotalReclaimableAmount)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.RecalculationSchedule, recalculate); err != nil {
		log.Fatalf("Invalid recalculation schedule %q: %v", cfg.Worker.RecalculationSchedule, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Worker.RecalculateOnStart {
		g.Go(func() error {
			recalculate()
			return nil
		})
	}

	g.Go(func() error {
		log.Printf("Starting recalculation worker, schedule %q", cfg.Worker.RecalculationSchedule)
		scheduler.Start()

		<-ctx.Done()

		log.Println("Shutting down worker...")
		// Wait for a running job to finish before exiting.
		<-scheduler.Stop().Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	log.Println("Worker exited")
}
