// Package cmd provides CLI commands for the tally binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)

// OutputFlags returns the flags shared by every command that renders.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// withOutputFlags appends the output flags to flags.
func withOutputFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, OutputFlags()...)
}

// lodeFlags configure a Lode dataset for write and inspect.
func lodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "lode-dataset",
			Usage: "Lode dataset ID",
		},
		&cli.StringFlag{
			Name:  "lode-backend",
			Usage: "Lode storage backend: fs or s3",
		},
		&cli.StringFlag{
			Name:  "lode-path",
			Usage: "Lode storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "lode-s3-region",
			Usage: "AWS region for the S3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "lode-s3-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "lode-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}
