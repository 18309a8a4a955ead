package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/notesbot/core/cmd"
	coreconfig "github.com/m3rciful/notesbot/core/config"
	coredatabase "github.com/m3rciful/notesbot/core/database"
	"github.com/m3rciful/notesbot/internal/convstate"
	"github.com/m3rciful/notesbot/internal/flow"
)

// State store backends.
const (
	StateMemory = "memory"
	StateRedis  = "redis"
)

// StateConfig selects where conversation state lives.
type StateConfig struct {
	Backend    string        `yaml:"backend" envconfig:"STATE_BACKEND"`
	MemorySize int           `yaml:"memory_size" envconfig:"STATE_MEMORY_SIZE"`
	RedisURL   string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	KeyPrefix  string        `yaml:"key_prefix" envconfig:"STATE_KEY_PREFIX"`
	TTL        time.Duration `yaml:"ttl" envconfig:"STATE_TTL"`
	LockExpiry time.Duration `yaml:"lock_expiry" envconfig:"STATE_LOCK_EXPIRY"`
}

// FlowConfig tunes the dispatcher. Zero values take the dispatcher defaults.
type FlowConfig struct {
	LockTimeout   time.Duration `yaml:"lock_timeout" envconfig:"FLOW_LOCK_TIMEOUT"`
	OpTimeout     time.Duration `yaml:"op_timeout" envconfig:"FLOW_OP_TIMEOUT"`
	NotesPageSize int           `yaml:"notes_page_size" envconfig:"FLOW_NOTES_PAGE_SIZE"`
}

// MetricsConfig exposes prometheus metrics; an empty Listen disables the endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the full notesbot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	State    StateConfig         `yaml:"state"`
	Flow     FlowConfig          `yaml:"flow"`
	Metrics  MetricsConfig       `yaml:"metrics"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

var _ cmd.ConfigCarrier = (*Config)(nil)

// LoadConfig reads and validates the configuration at path.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}

	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	switch c.State.Backend {
	case "":
		c.State.Backend = StateMemory
	case StateMemory:
	case StateRedis:
		if strings.TrimSpace(c.State.RedisURL) == "" {
			return fmt.Errorf("state.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: memory, redis", c.State.Backend)
	}
	if c.State.MemorySize < 0 || c.State.TTL < 0 || c.State.LockExpiry < 0 {
		return fmt.Errorf("state sizes and durations must be >= 0")
	}
	if c.Flow.LockTimeout < 0 || c.Flow.OpTimeout < 0 || c.Flow.NotesPageSize < 0 {
		return fmt.Errorf("flow timeouts and page size must be >= 0")
	}
	if c.State.Backend == StateRedis {
		// The redis lock is held across Get, one gateway call and Set.
		if expiry, op := c.lockExpiry(), c.opTimeout(); expiry <= 3*op {
			return fmt.Errorf("state.lock_expiry (%s) must exceed 3 x flow.op_timeout (%s)", expiry, op)
		}
	}
	return nil
}

func (c *Config) lockExpiry() time.Duration {
	if c.State.LockExpiry > 0 {
		return c.State.LockExpiry
	}
	return convstate.DefaultLockExpiry
}

func (c *Config) opTimeout() time.Duration {
	if c.Flow.OpTimeout > 0 {
		return c.Flow.OpTimeout
	}
	return flow.DefaultOpTimeout
}
