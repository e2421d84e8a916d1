// Package config loads process configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/credential"
)

// Config is the validated configuration shared by the server and the maintenance tool.
type Config struct {
	Mongo     MongoConfig
	Server    ServerConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type MongoConfig struct {
	URI                string        `validate:"required,mongouri"`
	Database           string        `validate:"omitempty,max=63,dbname"`
	ConnectTimeout     time.Duration `validate:"gt=0"`
	OperationTimeout   time.Duration `validate:"gt=0"`
	RequestTimeout     time.Duration `validate:"gt=0,gtefield=OperationTimeout"`
	MaintenanceTimeout time.Duration `validate:"gt=0"`
}

type ServerConfig struct {
	Addr               string `validate:"required,hostname_port"`
	RateLimitPerMinute int    `validate:"gte=0"`
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
}

type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool
}

type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string  `validate:"required_if=Enabled true"`
	ServiceName string  `validate:"required"`
	SampleRatio float64 `validate:"gte=0,lte=1"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("mongouri", validateMongoURI)
	_ = validate.RegisterValidation("dbname", validateDatabaseName)
}

func validateMongoURI(fl validator.FieldLevel) bool {
	uri := fl.Field().String()
	return strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://")
}

func validateDatabaseName(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "/\\. \"$")
}

// Load reads the configuration. A .env file in the working directory is loaded
// first when present; real environment variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := reader{getenv: getenv}

	uri := env.str("MONGODB_URI", "")
	if uri == "" {
		if ref := env.str("MONGODB_URI_KEYRING", ""); ref != "" {
			stored, err := credential.LookupURI(ref)
			if err != nil {
				return nil, fmt.Errorf("resolve MONGODB_URI_KEYRING: %w", err)
			}
			uri = stored
		}
	}

	cfg := &Config{
		Mongo: MongoConfig{
			URI:                uri,
			Database:           env.str("MONGODB_DB", ""),
			ConnectTimeout:     env.duration("CONNECT_TIMEOUT", core.DefaultConnectTimeout),
			OperationTimeout:   env.duration("OPERATION_TIMEOUT", core.DefaultOperationTimeout),
			RequestTimeout:     env.duration("REQUEST_TIMEOUT", core.DefaultRequestTimeout),
			MaintenanceTimeout: env.duration("MAINTENANCE_TIMEOUT", core.DefaultMaintenanceTimeout),
		},
		Server: ServerConfig{
			Addr:               env.str("HTTP_ADDR", ":8080"),
			RateLimitPerMinute: env.int("RATE_LIMIT_PER_MINUTE", 60),
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    20 * time.Second,
		},
		Log: LogConfig{
			Level:  strings.ToLower(env.str("LOG_LEVEL", "info")),
			Pretty: env.bool("LOG_PRETTY", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:     env.bool("OTEL_ENABLED", false),
			Endpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: env.str("OTEL_SERVICE_NAME", "consultadmin"),
			SampleRatio: env.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

// describe turns validator errors into messages naming the offending field
// without echoing its value, since the URI may carry credentials.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return f
}

func (r *reader) bool(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}
