package main

import (
	"fmt"
	"os"

	"github.com/aretw0/ivy/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "ivy",
	Short: "Ivy is a reactive observation engine",
	Long: `Ivy keeps records and sequences observable: writes notify watchers synchronously,
derived views follow their sources, and live trees patch a render host in place.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("redis", os.Getenv("IVY_REDIS_URL"), "Redis URL for the datastore and shard locks (e.g. redis://localhost:6379/0)")
	flags.String("data-dir", "", "Directory of a local pebble datastore")
	flags.String("file-dir", "", "Directory of a JSON file datastore")
	flags.String("log-level", "off", "Log level: off, debug, info, warn, error")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.Bool("strict", false, "Reject writes outside a mutation scope")
	flags.Int("max-depth", 0, "Maximum notification nesting depth (0 uses the default)")
	flags.StringSlice("mask", nil, "Regular expressions of keys masked before storage")
	flags.String("encryption-key", os.Getenv("IVY_ENCRYPTION_KEY"), "Base64 AES-256 key encrypting stored values")
}

// engineOptions reads the persistent flags.
func engineOptions(cmd *cobra.Command) cli.EngineOptions {
	flags := cmd.Flags()
	var opts cli.EngineOptions
	opts.RedisURL, _ = flags.GetString("redis")
	opts.DataDir, _ = flags.GetString("data-dir")
	opts.FileDir, _ = flags.GetString("file-dir")
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.LogJSON, _ = flags.GetBool("log-json")
	opts.Strict, _ = flags.GetBool("strict")
	opts.MaxDepth, _ = flags.GetInt("max-depth")
	opts.Mask, _ = flags.GetStringSlice("mask")
	opts.EncryptionKey, _ = flags.GetString("encryption-key")
	return opts
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
