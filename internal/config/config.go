package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paularlott/cli"
	"github.com/robfig/cron/v3"
)

const (
	DefaultDataDir       = "./data"
	DefaultListenAddr    = ":8080"
	DefaultAuditSchedule = "0 * * * *"
	DefaultAuditWorkers  = 2
)

// Config holds the application configuration
type Config struct {
	DataDir       string
	ListenAddr    string
	APIAuthToken  string
	MCPAuthToken  string
	PolicyFile    string
	AuditEnabled  bool
	AuditSchedule string
	AuditWorkers  int
}

// GetFlags returns the server flags. Each flag falls back to its GEO_*
// environment variable and then to the default.
func GetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Directory holding the range database",
			DefaultValue: DefaultDataDir,
			EnvVars:      []string{"GEO_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:         "listen-addr",
			Usage:        "HTTP listen address",
			DefaultValue: DefaultListenAddr,
			EnvVars:      []string{"GEO_LISTEN_ADDR"},
		},
		&cli.StringFlag{
			Name:    "api-auth-token",
			Usage:   "Bearer token required on /api/ requests",
			EnvVars: []string{"GEO_API_AUTH_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "mcp-auth-token",
			Usage:   "Bearer token required on /mcp requests",
			EnvVars: []string{"GEO_MCP_AUTH_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "policy",
			Usage:   "Validation policy file (YAML or JSON)",
			EnvVars: []string{"GEO_POLICY_FILE"},
		},
		&cli.BoolFlag{
			Name:    "audit",
			Usage:   "Run the scheduled inventory audit",
			EnvVars: []string{"GEO_AUDIT_ENABLED"},
		},
		&cli.StringFlag{
			Name:         "audit-schedule",
			Usage:        "Cron expression for the inventory audit",
			DefaultValue: DefaultAuditSchedule,
			EnvVars:      []string{"GEO_AUDIT_SCHEDULE"},
		},
		&cli.IntFlag{
			Name:         "audit-workers",
			Usage:        "Worker pool size for scheduled tasks",
			DefaultValue: DefaultAuditWorkers,
			EnvVars:      []string{"GEO_AUDIT_WORKERS"},
		},
	}
}

// FromCommand builds the config from the flags declared by GetFlags
func FromCommand(cmd *cli.Command) *Config {
	return &Config{
		DataDir:       cmd.GetString("data-dir"),
		ListenAddr:    cmd.GetString("listen-addr"),
		APIAuthToken:  cmd.GetString("api-auth-token"),
		MCPAuthToken:  cmd.GetString("mcp-auth-token"),
		PolicyFile:    cmd.GetString("policy"),
		AuditEnabled:  cmd.GetBool("audit"),
		AuditSchedule: cmd.GetString("audit-schedule"),
		AuditWorkers:  cmd.GetInt("audit-workers"),
	}
}

// Load reads the configuration from GEO_* environment variables only. It is
// used by commands that do not declare the server flags.
func Load() *Config {
	cfg := &Config{
		DataDir:       getEnv("GEO_DATA_DIR", DefaultDataDir),
		ListenAddr:    getEnv("GEO_LISTEN_ADDR", DefaultListenAddr),
		APIAuthToken:  os.Getenv("GEO_API_AUTH_TOKEN"),
		MCPAuthToken:  os.Getenv("GEO_MCP_AUTH_TOKEN"),
		PolicyFile:    os.Getenv("GEO_POLICY_FILE"),
		AuditSchedule: getEnv("GEO_AUDIT_SCHEDULE", DefaultAuditSchedule),
		AuditWorkers:  DefaultAuditWorkers,
	}

	if v, err := strconv.ParseBool(os.Getenv("GEO_AUDIT_ENABLED")); err == nil {
		cfg.AuditEnabled = v
	}
	if v, err := strconv.Atoi(os.Getenv("GEO_AUDIT_WORKERS")); err == nil && v > 0 {
		cfg.AuditWorkers = v
	}

	return cfg
}

// Validate checks the fields the server cannot start without
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.AuditEnabled {
		if _, err := cron.ParseStandard(c.AuditSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid audit schedule %q: %w", c.AuditSchedule, err))
		}
		if c.AuditWorkers < 1 {
			errs = append(errs, errors.New("audit workers must be at least 1"))
		}
	}
	return errors.Join(errs...)
}

// IsAPIAuthEnabled checks if API authentication is configured
func (c *Config) IsAPIAuthEnabled() bool {
	return c.APIAuthToken != ""
}

// IsMCPEnabled checks if MCP authentication is configured
func (c *Config) IsMCPEnabled() bool {
	return c.MCPAuthToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
