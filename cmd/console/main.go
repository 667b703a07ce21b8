package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/repository"
	"github.com/itqan-app/itqan-console/internal/service"
	"github.com/itqan-app/itqan-console/pkg/cache"
	"github.com/itqan-app/itqan-console/pkg/config"
	"github.com/itqan-app/itqan-console/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Operator console for the Itqan learning platform",
	Long:  "Approve pending registrations, link guardian accounts and inspect the audit trail of the Itqan platform.",
}

// app wires the console services over one pipeline instance.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *client.Pipeline

	pendingRepo  *repository.PendingRepository
	guardianRepo *repository.GuardianRepository
	auditRepo    *repository.AuditRepository

	cacheSvc    *service.CacheService
	approvalSvc *service.ApprovalService
	guardianSvc *service.GuardianService
	auditSvc    *service.AuditService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	metrics := client.NewMetrics()
	pipeline := client.New(
		client.SecurityContext{
			BaseURL:      cfg.Platform.BaseURL,
			SessionToken: cfg.Platform.SessionToken,
		},
		client.CSRFOptions{
			BootstrapPath: cfg.CSRF.BootstrapPath,
			Header:        cfg.CSRF.Header,
			Cookie:        cfg.CSRF.Cookie,
		},
		cfg.Platform.Timeout,
		metrics,
		logr,
	)

	var cacheRepo service.CacheRepository = repository.NewMemoryCacheRepository()
	if cfg.Cache.Enabled {
		if redisClient, err := cache.NewRedis(cfg.Redis); err == nil {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		} else {
			logr.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	pendingRepo := repository.NewPendingRepository(pipeline, logr)
	guardianRepo := repository.NewGuardianRepository(pipeline, logr)
	auditRepo := repository.NewAuditRepository(pipeline, logr)

	confirmer := terminalConfirmer{}

	return &app{
		cfg:          cfg,
		logger:       logr,
		pipeline:     pipeline,
		pendingRepo:  pendingRepo,
		guardianRepo: guardianRepo,
		auditRepo:    auditRepo,
		cacheSvc:     cacheSvc,
		approvalSvc:  service.NewApprovalService(pendingRepo, confirmer, logr),
		guardianSvc:  service.NewGuardianService(guardianRepo, nil, logr),
		auditSvc:     service.NewAuditService(auditRepo, confirmer, logr),
	}, nil
}

// terminalConfirmer blocks on a yes/no prompt before destructive actions.
type terminalConfirmer struct{}

func (terminalConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func main() {
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(guardianCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(stubCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
