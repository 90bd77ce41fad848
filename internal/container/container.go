package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mautops/pulse-analytics/internal/auth"
	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/database"
	"github.com/mautops/pulse-analytics/internal/metrics"
	"github.com/mautops/pulse-analytics/internal/repository"
	"github.com/mautops/pulse-analytics/internal/service"
	"github.com/mautops/pulse-analytics/internal/source"
	"github.com/mautops/pulse-analytics/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 数据库不可用且允许回退时 db 为 nil,分析改用合成数据
type Container struct {
	cfg       *config.Config
	logger    *logrus.Logger
	db        *gorm.DB
	analysis  *service.AnalysisService
	reports   *service.ReportService
	validator *auth.TokenValidator
	scheduler *service.RetrainScheduler
	collector *metrics.Collector
}

// NewContainer 创建依赖注入容器
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// 1. 数据库,带重试和指数退避
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	// 2. 报告与对象存储
	var uploader storage.Uploader
	minioUploader, err := storage.NewMinioUploader(cfg.Report.Upload)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to initialize report uploader: %w", err)
	}
	if minioUploader != nil {
		uploader = minioUploader
	}
	reports := service.NewReportService(cfg.Report, uploader, logger)

	// 3. 数据源与分析服务
	opts := service.AnalysisServiceOptions{
		Primary: source.NewDBSource(db),
		Reports: reports,
		Logger:  logger,
	}
	if cfg.Source.Fallback {
		opts.Fallback = source.NewSyntheticSource(cfg.Source.SyntheticSeed)
	}
	if db != nil {
		opts.Runs = repository.NewTrainingRunRepository(db)
	}
	analysisSvc := service.NewAnalysisService(cfg, opts)

	// 4. 已保存的模型快照
	if path := cfg.Analysis.ModelPath; path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := analysisSvc.LoadModel(path); err != nil {
				logger.WithError(err).WithField("path", path).Warn("Ignoring unusable model snapshot")
			}
		}
	}

	// 5. 认证
	var validator *auth.TokenValidator
	if cfg.Auth.JWTSecret != "" {
		validator, err = auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			database.Close(db)
			return nil, fmt.Errorf("failed to initialize token validator: %w", err)
		}
	} else if config.IsProduction(cfg) {
		logger.Warn("auth.jwt_secret is empty, mutating endpoints are unauthenticated")
	}

	return &Container{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		analysis:  analysisSvc,
		reports:   reports,
		validator: validator,
		scheduler: service.NewRetrainScheduler(analysisSvc, reports, cfg.Analysis.RetrainInterval, logger),
		collector: metrics.NewCollector(db, 15*time.Second),
	}, nil
}

// openDatabase 连接并迁移数据库。允许回退时失败只记录警告并返回 nil。
func openDatabase(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	retries := cfg.Database.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	db, err := database.ConnectWithRetry(cfg.Database, retries, time.Second)
	if err == nil {
		if err = database.Migrate(db); err != nil {
			database.Close(db)
			db = nil
		}
	}
	if err == nil {
		return db, nil
	}
	if !cfg.Source.Fallback {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.WithError(err).Warn("Database unavailable, analysis will use the synthetic dataset")
	return nil, nil
}

// Start 启动后台任务
func (c *Container) Start(ctx context.Context) {
	c.collector.Start()
	c.scheduler.Start(ctx)
}

// DB 获取数据库连接,可能为 nil
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Analysis 获取分析服务
func (c *Container) Analysis() *service.AnalysisService {
	return c.analysis
}

// Reports 获取报告服务
func (c *Container) Reports() *service.ReportService {
	return c.reports
}

// Validator 获取令牌校验器,未配置密钥时为 nil
func (c *Container) Validator() *auth.TokenValidator {
	return c.validator
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// SaveModel 将当前模型写入配置的快照路径
func (c *Container) SaveModel() error {
	path := c.cfg.Analysis.ModelPath
	if path == "" {
		return errors.New("analysis.model_path is not configured")
	}
	return c.analysis.SaveModel(path)
}

// Close 停止后台任务并关闭数据库
func (c *Container) Close() error {
	c.scheduler.Stop()
	c.collector.Stop()
	database.Close(c.db)
	return nil
}
