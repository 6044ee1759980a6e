// Package config loads ordkv's process-level settings: where the
// durability log lives, whether to fsync every write, and how noisy
// logging should be. The engine itself is single-client and
// single-process, so this is intentionally thin — grounded on
// steveyegge-beads's viper+cobra config pairing (cmd/bd/config.go) for
// the env/default layering, and on steveyegge-beads's
// internal/recipes.LoadUserRecipes (which calls toml.Unmarshal
// directly rather than going through viper's own TOML backend) for
// how the optional config file itself is read.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is the resolved set of process settings.
type Config struct {
	DBPath    string
	FsyncEach bool
	LogLevel  string
}

// fileConfig mirrors the shape of an optional ordkv.toml. Fields are
// pointers so an absent key is distinguishable from an explicit
// zero-value override when merging onto viper's defaults/env layer.
type fileConfig struct {
	DBPath    *string `toml:"db_path"`
	FsyncEach *bool   `toml:"fsync_each"`
	LogLevel  *string `toml:"log_level"`
}

const (
	defaultDBPath   = "data.db"
	defaultLogLevel = "info"
)

// Load resolves settings from (in ascending priority) defaults, an
// optional TOML config file, and ORDKV_-prefixed environment
// variables. configPath may be empty, in which case only defaults and
// environment variables apply.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDKV")
	v.AutomaticEnv()
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("fsync_each", false)
	v.SetDefault("log_level", defaultLogLevel)

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, err
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return Config{}, err
		}
		if fc.DBPath != nil {
			v.SetDefault("db_path", *fc.DBPath)
		}
		if fc.FsyncEach != nil {
			v.SetDefault("fsync_each", *fc.FsyncEach)
		}
		if fc.LogLevel != nil {
			v.SetDefault("log_level", *fc.LogLevel)
		}
	}

	return Config{
		DBPath:    v.GetString("db_path"),
		FsyncEach: v.GetBool("fsync_each"),
		LogLevel:  strings.ToLower(v.GetString("log_level")),
	}, nil
}
