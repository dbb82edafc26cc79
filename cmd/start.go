package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/faiface/pixel/pixelgl"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beanboi7/chyp8/config"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/loop"
	"github.com/beanboi7/chyp8/emu/screen"
)

var startCmd = &cobra.Command{
	Use:   "start path/ROM",
	Short: "load and start the Emulator in a window",
	Args:  cobra.ExactArgs(1),
	RunE:  Start,
}

// chyp8 start path/to/ROM -r 60 -s 12
func Start(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	log := cfg.Logger(os.Stderr)

	emu, err := newMachine(cfg, log, args[0])
	if err != nil {
		return err
	}

	// pixelgl needs the main thread and a display, so only this command
	// enters it. Cobra runs RunE on the main goroutine.
	pixelgl.Run(func() {
		err = run(cmd.Context(), cfg, emu, log)
	})
	return err
}

func run(ctx context.Context, cfg config.Config, emu *cpu.EMU, log *slog.Logger) error {
	win, err := screen.NewWindow(cfg.Scale, cfg.Debug)
	if err != nil {
		return err
	}
	defer win.Destroy()

	return loop.New(emu, win, cfg, log).Run(ctx)
}

func init() {
	startCmd.Flags().IntP("scale", "s", 10, "window pixels per Chip-8 pixel")
	bindFlag(config.KeyScale, startCmd.Flags().Lookup("scale"))
}
