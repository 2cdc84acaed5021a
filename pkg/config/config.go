package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config carries the resolved runtime settings. The ingestion core never
// reads configuration itself; everything arrives through here.
type Config struct {
	DataDir          string
	Listen           string
	InstitutionsFile string
	NetOfTax         bool
}

// Build layers defaults, an optional YAML config file, BANKFEED_*
// environment variables, and flag overrides, in that precedence order.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault("data-dir", ".")
	v.SetDefault("listen", "0.0.0.0:3000")
	v.SetDefault("institutions", "institutions.yaml")
	v.SetDefault("net-of-tax", false)

	v.SetEnvPrefix("BANKFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	return &Config{
		DataDir:          v.GetString("data-dir"),
		Listen:           v.GetString("listen"),
		InstitutionsFile: v.GetString("institutions"),
		NetOfTax:         v.GetBool("net-of-tax"),
	}, nil
}

// DatabasePath is where the bolt file lives inside the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "bankfeed.db")
}
