package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/beanboi7/chyp8/config"
	"github.com/beanboi7/chyp8/emu/cpu"
)

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

// newMachine builds an EMU for the real-time loop and loads the ROM at path.
func newMachine(cfg config.Config, log *slog.Logger, path string) (*cpu.EMU, error) {
	opts := []cpu.Option{
		cpu.WithLogger(log),
		cpu.WithCoupledTimers(false),
	}
	if cfg.Seed != 0 {
		opts = append(opts, cpu.WithSeed(cfg.Seed))
	}

	emu := cpu.New(opts...)
	if err := emu.LoadFile(path); err != nil {
		return nil, err
	}
	log.Info("rom loaded", "path", path, "clock", cfg.Clock, "timer", cfg.Timer, "refresh", cfg.Refresh)
	return emu, nil
}
