package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/mediavault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-e string   signed URL endpoint
//	-d string   delete endpoint
//	-k string   bucket key prefix
//	-r string   bucket region
//	-n int      maximum concurrent uploads
//	-dsn string PostgreSQL DSN for the local record store
//
// The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-d", "-k", "-r", "-n", "-dsn"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.SignURLEndpoint, "e", cfg.SignURLEndpoint, "signed URL endpoint")
	fs.StringVar(&cfg.DeleteEndpoint, "d", cfg.DeleteEndpoint, "delete endpoint")
	fs.StringVar(&cfg.BucketKey, "k", cfg.BucketKey, "bucket key prefix")
	fs.StringVar(&cfg.BucketRegion, "r", cfg.BucketRegion, "bucket region")
	fs.IntVar(&cfg.MaxConcurrentUploads, "n", cfg.MaxConcurrentUploads, "maximum concurrent uploads")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "PostgreSQL DSN for the record store")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
