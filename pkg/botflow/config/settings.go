package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Settings is the typed configuration of the botflow service.
type Settings struct {
	Server ServerSettings
	Filter FilterSettings
	Retry  RetrySettings
	NATS   NATSSettings
	Log    LogSettings
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Addr            string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// FilterSettings holds the raw comma-separated allow-lists.
type FilterSettings struct {
	ChatIDs   string
	UserIDs   string
	CacheSize int64
}

// RetrySettings configures outbound retries.
type RetrySettings struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         float64
}

// NATSSettings configures the event sink. An empty URL disables NATS.
type NATSSettings struct {
	URL     string
	Subject string

	// DeadLetterSize caps events parked after exhausting publish retries.
	DeadLetterSize int
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level  string
	Format string
}

// SlogLevel parses Level, defaulting to info.
func (l LogSettings) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DefaultSettings returns the settings used for keys a file leaves out.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:            ":8080",
			MaxBodyBytes:    1 << 20,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Filter: FilterSettings{CacheSize: 1024},
		Retry: RetrySettings{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			BackoffFactor:  2,
		},
		NATS: NATSSettings{Subject: "botflow.events", DeadLetterSize: 1000},
		Log:  LogSettings{Level: "info", Format: "json"},
	}
}

// LoadSettings maps cfg onto Settings, starting from DefaultSettings,
// and validates the result.
func LoadSettings(cfg Config) (Settings, error) {
	d := DefaultSettings()
	server, filter, retry := cfg.Section("server"), cfg.Section("filter"), cfg.Section("retry")
	nats, log := cfg.Section("nats"), cfg.Section("log")
	s := Settings{
		Server: ServerSettings{
			Addr:            server.String("addr", d.Server.Addr),
			MaxBodyBytes:    server.Int64("max_body_bytes", d.Server.MaxBodyBytes),
			ReadTimeout:     server.Duration("read_timeout", d.Server.ReadTimeout),
			WriteTimeout:    server.Duration("write_timeout", d.Server.WriteTimeout),
			ShutdownTimeout: server.Duration("shutdown_timeout", d.Server.ShutdownTimeout),
		},
		Filter: FilterSettings{
			ChatIDs:   filter.IDList("chat_ids", d.Filter.ChatIDs),
			UserIDs:   filter.IDList("user_ids", d.Filter.UserIDs),
			CacheSize: filter.Int64("cache_size", d.Filter.CacheSize),
		},
		Retry: RetrySettings{
			MaxRetries:     retry.Int("max_retries", d.Retry.MaxRetries),
			InitialBackoff: retry.Duration("initial_backoff", d.Retry.InitialBackoff),
			MaxBackoff:     retry.Duration("max_backoff", d.Retry.MaxBackoff),
			BackoffFactor:  retry.Float("backoff_factor", d.Retry.BackoffFactor),
			Jitter:         retry.Float("jitter", d.Retry.Jitter),
		},
		NATS: NATSSettings{
			URL:     nats.String("url", d.NATS.URL),
			Subject: nats.String("subject", d.NATS.Subject),

			DeadLetterSize: nats.Int("dead_letter_size", d.NATS.DeadLetterSize),
		},
		Log: LogSettings{
			Level:  log.String("level", d.Log.Level),
			Format: log.String("format", d.Log.Format),
		},
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettingsFile loads and validates settings from path.
// An empty path yields the defaults.
func LoadSettingsFile(path string) (Settings, error) {
	cfg, err := Load(path)
	if err != nil {
		return Settings{}, err
	}
	return LoadSettings(cfg)
}

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if s.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", s.Server.MaxBodyBytes))
	}
	if s.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative, got %d", s.Retry.MaxRetries))
	}
	if s.Retry.BackoffFactor < 1 {
		errs = append(errs, fmt.Errorf("retry.backoff_factor must be at least 1, got %g", s.Retry.BackoffFactor))
	}
	if s.Retry.Jitter < 0 || s.Retry.Jitter > 1 {
		errs = append(errs, fmt.Errorf("retry.jitter must be within [0, 1], got %g", s.Retry.Jitter))
	}
	if s.Retry.MaxBackoff < s.Retry.InitialBackoff {
		errs = append(errs, errors.New("retry.max_backoff must not be below retry.initial_backoff"))
	}
	if s.NATS.DeadLetterSize <= 0 {
		errs = append(errs, fmt.Errorf("nats.dead_letter_size must be positive, got %d", s.NATS.DeadLetterSize))
	}
	if s.NATS.URL != "" && s.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required when nats.url is set"))
	}
	switch s.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", s.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}
