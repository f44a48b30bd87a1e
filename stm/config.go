package stm

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config tunes an Engine and the Refs created with its defaults.
type Config struct {
	// MaxRetries bounds the number of retries of one transaction. Zero
	// means retry until the transaction commits.
	MaxRetries int `yaml:"max_retries"`

	// Retries sleep for a random duration below BackoffBase<<attempt,
	// capped at BackoffMax. A zero BackoffBase retries immediately.
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffMax  time.Duration `yaml:"backoff_max"`

	// History bounds for new Refs.
	MinHistory int `yaml:"min_history"`
	MaxHistory int `yaml:"max_history"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:  0,
		BackoffBase: 10 * time.Microsecond,
		BackoffMax:  5 * time.Millisecond,
		MinHistory:  0,
		MaxHistory:  10,
	}
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()

	var data, err = os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading stm config")
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing stm config %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.Errorf("max_retries %d is negative", c.MaxRetries)
	case c.BackoffBase < 0 || c.BackoffMax < 0:
		return errors.New("backoff durations must not be negative")
	case c.BackoffMax < c.BackoffBase:
		return errors.Errorf("backoff_max %s is below backoff_base %s", c.BackoffMax, c.BackoffBase)
	case c.MinHistory < 0:
		return errors.Errorf("min_history %d is negative", c.MinHistory)
	case c.MaxHistory < 1 || c.MaxHistory < c.MinHistory:
		return errors.Errorf("max_history %d must be at least 1 and min_history %d", c.MaxHistory, c.MinHistory)
	}
	return nil
}
