package config

import "time"

type AuthConfig struct {
	Secret    string `mapstructure:"secret" validate:"required,min=16"`
	ExpiryMin int    `mapstructure:"expiry_min" validate:"gte=1"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns" validate:"gte=1"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout" validate:"gt=0"`
}

// RedisConfig is optional, an empty URL keeps alert state in memory.
type RedisConfig struct {
	URL             string        `mapstructure:"url"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MonitorTTL      time.Duration `mapstructure:"monitor_ttl"`
}

// RabbitMQConfig is optional, without a broker link email/sms/call alerts are only logged.
type RabbitMQConfig struct {
	BrokerLink   string `mapstructure:"broker_link"`
	ExchangeName string `mapstructure:"exchange_name"`
	ExchangeType string `mapstructure:"exchange_type" validate:"omitempty,oneof=direct topic fanout"`
	QueuePrefix  string `mapstructure:"queue_prefix"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type SchedulerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	JobBuffer    int           `mapstructure:"job_buffer" validate:"gte=1"`
}

type ExecutorConfig struct {
	WorkerCount    int           `mapstructure:"worker_count" validate:"gte=1"`
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"gte=1"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Method         string        `mapstructure:"method" validate:"oneof=GET HEAD"`
	UserAgent      string        `mapstructure:"user_agent"`
}

type ResultConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1"`
	Buffer      int `mapstructure:"buffer" validate:"gte=1"`
}

type StatusConfig struct {
	DownThreshold int           `mapstructure:"down_threshold" validate:"gte=1"`
	Window        time.Duration `mapstructure:"window" validate:"gt=0"`
}

type AlertConfig struct {
	WorkerCount     int           `mapstructure:"worker_count" validate:"gte=1"`
	Buffer          int           `mapstructure:"buffer" validate:"gte=1"`
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	BaseBackoff     time.Duration `mapstructure:"base_backoff" validate:"gt=0"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff" validate:"gt=0"`
	SendTimeout     time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
	AlertOnDegraded bool          `mapstructure:"alert_on_degraded"`
}

type RetentionConfig struct {
	Window     time.Duration `mapstructure:"window" validate:"gt=0"`
	Sweep      string        `mapstructure:"sweep" validate:"required"`
	HardDelete bool          `mapstructure:"hard_delete"`
}

type HistoryConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=postgres memory"`
}

type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type Config struct {
	Env         string          `mapstructure:"env" validate:"required"`
	ServiceName string          `mapstructure:"service_name" validate:"required"`
	Port        int             `mapstructure:"port" validate:"gte=1,lte=65535"`
	DB          DBConfig        `mapstructure:"db"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RabbitMQ    RabbitMQConfig  `mapstructure:"rabbitmq"`
	NATS        NATSConfig      `mapstructure:"nats"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Executor    ExecutorConfig  `mapstructure:"executor"`
	Result      ResultConfig    `mapstructure:"result"`
	Status      StatusConfig    `mapstructure:"status"`
	Alert       AlertConfig     `mapstructure:"alert"`
	Retention   RetentionConfig `mapstructure:"retention"`
	History     HistoryConfig   `mapstructure:"history"`
	HTTP        HTTPConfig      `mapstructure:"http"`
}
