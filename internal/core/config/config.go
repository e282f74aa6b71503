package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name        string
	Env         string
	HTTP        HTTP
	Admin       AdminHTTP
	FrontendURL string // 邮件验证完成后跳转的前端地址
	PublicURL   string // 本服务对外地址，用于拼接验证链接
}

// IsDev 开发环境下错误信息不脱敏
func (a App) IsDev() bool { return a.Env == "" || a.Env == "development" || a.Env == "dev" }

type Log struct {
	Level string
	JSON  bool
	File  string // 非空则同时写文件并切割
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

type Redis struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	CacheTTLSec int    `mapstructure:"cacheTTLSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Auth 账号安全相关常量
type Auth struct {
	MaxLoginAttempts     int
	LockoutMinutes       int
	VerificationTTLHours int
	CartTTLHours         int
}

type Mail struct {
	Provider string // smtp | log
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Cloudinary struct {
	CloudName string
	APIKey    string `mapstructure:"apiKey"`
	APISecret string `mapstructure:"apiSecret"`
	Folder    string
}

func (c Cloudinary) Enabled() bool { return c.CloudName != "" && c.APIKey != "" && c.APISecret != "" }

type Upload struct {
	MaxFiles  int
	MaxFileMB int
}

func (u Upload) MaxFileBytes() int64 { return int64(u.MaxFileMB) << 20 }

type Events struct {
	Brokers []string
	Topic   string
}

type Config struct {
	App        App
	Log        Log
	JWT        JWT
	DB         DB
	Redis      Redis `mapstructure:"redis"`
	Auth       Auth
	Mail       Mail
	Cloudinary Cloudinary
	Upload     Upload
	Events     Events
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "adaayien")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 5000)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 5001)
	v.SetDefault("app.frontendURL", "http://localhost:3000")
	v.SetDefault("app.publicURL", "http://localhost:5000")

	v.SetDefault("log.level", "info")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "adaayien")
	v.SetDefault("jwt.accessTokenTTLMin", 7*24*60)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.autoMigrate", false)
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cacheTTLSec", 300)

	v.SetDefault("auth.maxLoginAttempts", 5)
	v.SetDefault("auth.lockoutMinutes", 15)
	v.SetDefault("auth.verificationTTLHours", 24)
	v.SetDefault("auth.cartTTLHours", 24*30)

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "Adaayien <no-reply@adaayien.com>")

	v.SetDefault("cloudinary.cloudName", "")
	v.SetDefault("cloudinary.apiKey", "")
	v.SetDefault("cloudinary.apiSecret", "")
	v.SetDefault("cloudinary.folder", "adaayien")

	v.SetDefault("upload.maxFiles", 5)
	v.SetDefault("upload.maxFileMB", 5)

	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "adaayien.events")
}

// LoadE 读取 YAML（可缺省）+ APP_ 前缀环境变量
func LoadE(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// 文件不存在时只用默认值 + 环境变量
		var nf viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := LoadE(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		return errors.New("config: auth.maxLoginAttempts must be positive")
	}
	return nil
}
