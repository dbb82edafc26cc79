package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beanboi7/chyp8/emu/cpu"
)

var dumpCmd = &cobra.Command{
	Use:   "dump path/ROM",
	Short: "print a disassembly of a ROM without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  Dump,
}

func Dump(cmd *cobra.Command, args []string) error {
	rom, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}
	return cpu.WriteListing(cmd.OutOrStdout(), rom)
}
