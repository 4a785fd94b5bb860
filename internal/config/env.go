package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".crewd/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"crewd/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type WebhookEnv struct {
	// URLs is a comma-separated list of endpoints that receive
	// workflow event POSTs.
	URLs    string        `envconfig:"WEBHOOK_URLS"`
	Timeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `envconfig:"VAPID_SUBJECT" default:"mailto:admin@example.com"`
}

type ExecutorEnv struct {
	ScriptDir     string        `envconfig:"EXECUTOR_SCRIPT_DIR" default:".crewd/scripts"`
	ScriptTimeout time.Duration `envconfig:"EXECUTOR_SCRIPT_TIMEOUT" default:"5m"`
}

type Env struct {
	BaseEnv
	StorageEnv
	WebhookEnv
	VAPIDEnv
	ExecutorEnv
}

const namespace = "CREWD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func (e *WebhookEnv) URLList() []string {
	if e.URLs == "" {
		return nil
	}
	parts := strings.Split(e.URLs, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func WebhookEnvFromEnv(env *Env) *WebhookEnv {
	return &env.WebhookEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}

func ExecutorEnvFromEnv(env *Env) *ExecutorEnv {
	return &env.ExecutorEnv
}
