// Package config reads emulator settings from flags, environment variables
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every key when looking up environment
	// variables, e.g. CHYP8_CLOCK.
	EnvPrefix = "CHYP8"

	// configName is searched for in the home directory without extension.
	configName = ".chyp8"
)

const (
	KeyClock   = "clock"
	KeyTimer   = "timer"
	KeyRefresh = "refresh"
	KeyScale   = "scale"
	KeyDebug   = "debug"
	KeySeed    = "seed"
	KeyLogFile = "log_file"
)

// Config is the resolved set of emulator settings.
type Config struct {
	Clock   int   // instructions per second
	Timer   int   // delay/sound timer rate in Hz
	Refresh int   // frames per second
	Scale   int   // window pixels per CHIP-8 pixel
	Debug   bool  // trace opcodes and show diagnostics
	Seed    int64 // random seed for Cxkk, 0 picks one from the clock
	LogFile string
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyClock, 500)
	v.SetDefault(KeyTimer, 60)
	v.SetDefault(KeyRefresh, 60)
	v.SetDefault(KeyScale, 10)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeySeed, 0)
	v.SetDefault(KeyLogFile, "")
}

// Init points v at the config file and environment. With an empty cfgFile
// it looks for .chyp8 in the home directory; not finding one there is fine.
// It returns the path of the file that was read, if any.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("finding home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Clock:   v.GetInt(KeyClock),
		Timer:   v.GetInt(KeyTimer),
		Refresh: v.GetInt(KeyRefresh),
		Scale:   v.GetInt(KeyScale),
		Debug:   v.GetBool(KeyDebug),
		Seed:    v.GetInt64(KeySeed),
		LogFile: v.GetString(KeyLogFile),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MaxRate bounds clock, timer and refresh. Periods are derived as
// time.Second/rate and must not truncate to zero.
const MaxRate = 1_000_000

// Validate rejects rates and sizes the host loop cannot work with.
func (cfg Config) Validate() error {
	checks := []struct {
		key   string
		value int
		max   int
	}{
		{KeyClock, cfg.Clock, MaxRate},
		{KeyTimer, cfg.Timer, MaxRate},
		{KeyRefresh, cfg.Refresh, MaxRate},
		{KeyScale, cfg.Scale, 0},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", c.key, c.value)
		}
		if c.max > 0 && c.value > c.max {
			return fmt.Errorf("%s must be at most %d, got %d", c.key, c.max, c.value)
		}
	}
	return nil
}

// Logger builds the logger for cfg, writing text records to w.
func (cfg Config) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
