package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beanboi7/chyp8/config"
	"github.com/beanboi7/chyp8/emu/loop"
	"github.com/beanboi7/chyp8/emu/term"
)

var termCmd = &cobra.Command{
	Use:   "term path/ROM",
	Short: "run the Emulator inside the terminal",
	Long:  "Runs a ROM in the terminal. Log output would corrupt the screen, so it goes to --log-file or nowhere.",
	Args:  cobra.ExactArgs(1),
	RunE:  Term,
}

func Term(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log := cfg.Logger(out)

	emu, err := newMachine(cfg, log, args[0])
	if err != nil {
		return err
	}

	t, err := term.Open(cfg.Debug)
	if err != nil {
		return err
	}
	defer t.Close()

	return loop.New(emu, t, cfg, log).Run(cmd.Context())
}

func init() {
	termCmd.Flags().String("log-file", "", "append logs to this file")
	bindFlag(config.KeyLogFile, termCmd.Flags().Lookup("log-file"))
}
