package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beanboi7/chyp8/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chyp8 [command]",
	Short: "Chip-8 emulator using Go",
	Long:  "A Chip-8 emulator written from scratch that mimics the functionalities of a Chip-8, an interpretted language originally written for the COSMIC-VIP/ Telmac 8 bit systems.",

	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chyp8)")
	flags.Bool("debug", false, "trace every opcode and show diagnostics")
	flags.IntP("clock", "c", 500, "instructions executed per second")
	flags.Int("timer", 60, "delay and sound timer rate in Hz")
	flags.IntP("refresh", "r", 60, "Set the refresh rate in Hz")
	flags.Int64("seed", 0, "seed for the random number opcode, 0 picks one")

	bindFlag(config.KeyDebug, flags.Lookup("debug"))
	bindFlag(config.KeyClock, flags.Lookup("clock"))
	bindFlag(config.KeyTimer, flags.Lookup("timer"))
	bindFlag(config.KeyRefresh, flags.Lookup("refresh"))
	bindFlag(config.KeySeed, flags.Lookup("seed"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(startCmd, termCmd, dumpCmd)
}

// Execute runs the CLI until the command returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	used, err := config.Init(viper.GetViper(), cfgFile)
	cobra.CheckErr(err)

	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}
