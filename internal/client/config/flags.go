package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the FileDrop server (default from Config)
//	-o string   output directory for fetched files (default from Config)
//	-t string   identity token for owner-scoped commands (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-o", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "output directory for fetched files")
	fs.StringVar(&cfg.AuthToken, "t", cfg.AuthToken, "identity token for owner-scoped commands")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
