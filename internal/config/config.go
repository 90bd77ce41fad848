package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env       string          `mapstructure:"env"` // 环境: development, production
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Source    SourceConfig    `mapstructure:"source"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Model     ModelConfig     `mapstructure:"model"`
	Report    ReportConfig    `mapstructure:"report"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	URL             string `mapstructure:"url"`    // 完整 DSN,优先于分项配置
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 秒
	ConnectRetries  int    `mapstructure:"connect_retries"`
}

// SourceConfig 数据源配置
type SourceConfig struct {
	Fallback      bool  `mapstructure:"fallback"` // 数据库不可用时使用合成数据
	SyntheticSeed int64 `mapstructure:"synthetic_seed"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, file, both
}

// AuthConfig 认证配置,JWTSecret 为空时不启用认证
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	TrainRPS   float64 `mapstructure:"train_rps"`
	TrainBurst int     `mapstructure:"train_burst"`
}

// AnalysisConfig 分析流程配置
type AnalysisConfig struct {
	MinTrainingRows int           `mapstructure:"min_training_rows"`
	TestFraction    float64       `mapstructure:"test_fraction"`
	RandomSeed      uint64        `mapstructure:"random_seed"`
	Ensemble        bool          `mapstructure:"ensemble"`
	TextFeatures    bool          `mapstructure:"text_features"`
	TrainOnDemand   bool          `mapstructure:"train_on_demand"`
	ModelPath       string        `mapstructure:"model_path"`
	RetrainInterval time.Duration `mapstructure:"retrain_interval"` // 0 表示不定期重训
}

// ModelConfig 模型超参数
type ModelConfig struct {
	RandomForest     ForestConfig   `mapstructure:"random_forest"`
	GradientBoosting BoostingConfig `mapstructure:"gradient_boosting"`
	Ensemble         EnsembleConfig `mapstructure:"ensemble"`
}

// ForestConfig 随机森林参数
type ForestConfig struct {
	NEstimators     int    `mapstructure:"n_estimators"`
	MaxDepth        int    `mapstructure:"max_depth"`
	MinSamplesSplit int    `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int    `mapstructure:"min_samples_leaf"`
	MaxFeatures     string `mapstructure:"max_features"` // sqrt, all
	Bootstrap       bool   `mapstructure:"bootstrap"`
}

// BoostingConfig 梯度提升参数
type BoostingConfig struct {
	NEstimators     int     `mapstructure:"n_estimators"`
	LearningRate    float64 `mapstructure:"learning_rate"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf"`
	Subsample       float64 `mapstructure:"subsample"`
}

// EnsembleConfig 投票权重,顺序为 forest, boosting, linear
type EnsembleConfig struct {
	Weights []float64 `mapstructure:"weights"`
}

// ReportConfig 报告输出配置
type ReportConfig struct {
	Dir           string       `mapstructure:"dir"`
	Formats       []string     `mapstructure:"formats"` // csv, json, yaml
	RetentionDays int          `mapstructure:"retention_days"`
	Upload        UploadConfig `mapstructure:"upload"`
}

// UploadConfig 对象存储配置,Endpoint 为空时不上传
type UploadConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.pulse-analytics")
		// 忽略配置文件不存在的错误,使用默认值
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容 DATABASE_URL
	if url := os.Getenv("DATABASE_URL"); url != "" && v.GetString("database.url") == "" {
		v.Set("database.url", url)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if c.Analysis.TestFraction <= 0 || c.Analysis.TestFraction >= 1 {
		return fmt.Errorf("analysis.test_fraction must be in (0, 1), got %v", c.Analysis.TestFraction)
	}
	if c.Analysis.MinTrainingRows < 2 {
		return fmt.Errorf("analysis.min_training_rows must be at least 2, got %d", c.Analysis.MinTrainingRows)
	}
	if c.Model.RandomForest.NEstimators <= 0 {
		return fmt.Errorf("model.random_forest.n_estimators must be positive")
	}
	return nil
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	v.SetDefault("env", env)

	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)

	// 数据库默认配置
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "smartprojectpulse")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "pulse.db")
	v.SetDefault("database.connect_retries", 3)
	if env == "production" {
		v.SetDefault("database.max_idle_conns", 20)
		v.SetDefault("database.max_open_conns", 200)
		v.SetDefault("database.conn_max_idle_time", 300)
	} else {
		v.SetDefault("database.max_idle_conns", 10)
		v.SetDefault("database.max_open_conns", 100)
		v.SetDefault("database.conn_max_idle_time", 600)
	}
	v.SetDefault("database.conn_max_lifetime", 3600)

	// 数据源
	v.SetDefault("source.fallback", true)
	v.SetDefault("source.synthetic_seed", 42)

	// CORS 默认配置
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.max_age", 86400)

	// 日志配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")

	// 认证与限流
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("rate_limit.train_rps", 0.2)
	v.SetDefault("rate_limit.train_burst", 2)

	// 分析流程
	v.SetDefault("analysis.min_training_rows", 10)
	v.SetDefault("analysis.test_fraction", 0.25)
	v.SetDefault("analysis.random_seed", 42)
	v.SetDefault("analysis.ensemble", true)
	v.SetDefault("analysis.text_features", false)
	v.SetDefault("analysis.train_on_demand", true)
	v.SetDefault("analysis.model_path", "models/delay_model.json")
	v.SetDefault("analysis.retrain_interval", "0s")

	// 模型超参数
	v.SetDefault("model.random_forest.n_estimators", 500)
	v.SetDefault("model.random_forest.max_depth", 20)
	v.SetDefault("model.random_forest.min_samples_split", 2)
	v.SetDefault("model.random_forest.min_samples_leaf", 1)
	v.SetDefault("model.random_forest.max_features", "sqrt")
	v.SetDefault("model.random_forest.bootstrap", true)
	v.SetDefault("model.gradient_boosting.n_estimators", 300)
	v.SetDefault("model.gradient_boosting.learning_rate", 0.1)
	v.SetDefault("model.gradient_boosting.max_depth", 8)
	v.SetDefault("model.gradient_boosting.min_samples_split", 2)
	v.SetDefault("model.gradient_boosting.min_samples_leaf", 1)
	v.SetDefault("model.gradient_boosting.subsample", 0.8)
	v.SetDefault("model.ensemble.weights", []float64{3, 2, 3})

	// 报告
	v.SetDefault("report.dir", "results")
	v.SetDefault("report.formats", []string{"csv", "json"})
	v.SetDefault("report.retention_days", 30)
	v.SetDefault("report.upload.endpoint", "")
	v.SetDefault("report.upload.bucket", "pulse-reports")
	v.SetDefault("report.upload.prefix", "analysis")
	v.SetDefault("report.upload.use_ssl", false)
}
