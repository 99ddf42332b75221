package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// default first
	setDefaults(v)

	// File Config
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Env Config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read File
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("service_name", "pulsewatch")
	v.SetDefault("port", 8080)

	v.SetDefault("auth.expiry_min", 60)

	v.SetDefault("db.max_open_conns", 50)
	v.SetDefault("db.min_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "1h")
	v.SetDefault("db.conn_max_idle_time", "30m")
	v.SetDefault("db.health_timeout", "5s")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.conn_max_lifetime", "2m")
	v.SetDefault("redis.conn_max_idle_time", "30s")
	v.SetDefault("redis.monitor_ttl", "5m")

	v.SetDefault("rabbitmq.broker_link", "")
	v.SetDefault("rabbitmq.exchange_name", "pulsewatch.alerts")
	v.SetDefault("rabbitmq.exchange_type", "direct")
	v.SetDefault("rabbitmq.queue_prefix", "pulsewatch.notify.")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "pulsewatch.monitor.status")

	v.SetDefault("scheduler.tick_interval", "1s")
	v.SetDefault("scheduler.job_buffer", 1000)

	v.SetDefault("executor.worker_count", 50)
	v.SetDefault("executor.max_concurrency", 500)
	v.SetDefault("executor.timeout", "10s")
	v.SetDefault("executor.method", "GET")
	v.SetDefault("executor.user_agent", "PulseWatch/1.0")

	v.SetDefault("result.worker_count", 10)
	v.SetDefault("result.buffer", 1000)

	v.SetDefault("status.down_threshold", 2)
	v.SetDefault("status.window", "24h")

	v.SetDefault("alert.worker_count", 10)
	v.SetDefault("alert.buffer", 500)
	v.SetDefault("alert.max_attempts", 3)
	v.SetDefault("alert.base_backoff", "500ms")
	v.SetDefault("alert.max_backoff", "5s")
	v.SetDefault("alert.send_timeout", "10s")
	v.SetDefault("alert.alert_on_degraded", false)

	v.SetDefault("retention.window", "2160h")
	v.SetDefault("retention.sweep", "@every 1h")
	v.SetDefault("retention.hard_delete", false)

	v.SetDefault("history.backend", "postgres")

	v.SetDefault("http.request_timeout", "5s")
	v.SetDefault("http.allowed_origins", []string{"*"})
}

func validateConfig(cfg *Config) error {

	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}
	return nil
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")

	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
