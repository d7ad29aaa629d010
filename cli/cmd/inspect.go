package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tally/cli/render"
	"github.com/pithecene-io/tally/frame"
	"github.com/pithecene-io/tally/iox"
	"github.com/pithecene-io/tally/lode"
	"github.com/pithecene-io/tally/types"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Read back records written by a sink",
		Subcommands: []*cli.Command{
			inspectFramesCommand(),
			inspectLodeCommand(),
		},
	}
}

func inspectFramesCommand() *cli.Command {
	return &cli.Command{
		Name:  "frames",
		Usage: "Decode a msgpack frame file",
		Flags: withOutputFlags(
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Frame file to decode",
				Required: true,
			},
		),
		Action: inspectFramesAction,
	}
}

func inspectFramesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	f, err := os.Open(c.String("input"))
	if err != nil {
		return fmt.Errorf("open frame file: %w", err)
	}
	defer iox.DiscardClose(f)

	records, err := frame.ReadAll[types.Record](f)
	if err != nil {
		return fmt.Errorf("decode frame file: %w", err)
	}
	return r.Render(RecordList(records))
}

func inspectLodeCommand() *cli.Command {
	return &cli.Command{
		Name:   "lode",
		Usage:  "Read the latest snapshot of a Lode dataset",
		Flags:  withOutputFlags(lodeFlags()...),
		Action: inspectLodeAction,
	}
}

func inspectLodeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	lc := lodeChoice{
		dataset:   c.String("lode-dataset"),
		backend:   orDefault(c.String("lode-backend"), "fs"),
		path:      c.String("lode-path"),
		region:    c.String("lode-s3-region"),
		endpoint:  c.String("lode-s3-endpoint"),
		pathStyle: c.Bool("lode-s3-path-style"),
	}
	if err := validateLodeChoice(lc); err != nil {
		return err
	}

	ds, err := openLodeDataset(c.Context, lc)
	if err != nil {
		return err
	}
	records, err := lode.ReadLatest(c.Context, ds)
	if err != nil {
		return err
	}

	out := make(RecordList, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return r.Render(out)
}

// RecordList renders decoded records. Columns are the union of all keys.
type RecordList []types.Record

// Tables implements render.Tables.
func (l RecordList) Tables() []render.Table {
	seen := make(map[string]struct{})
	for _, rec := range l {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(seen))
	for k := range seen {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, 0, len(l))
	for _, rec := range l {
		row := make([]string, len(header))
		for i, k := range header {
			if v, ok := rec[k]; ok {
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		rows = append(rows, row)
	}
	return []render.Table{table{
		title:  fmt.Sprintf("Records (%d)", len(l)),
		header: header,
		rows:   rows,
	}}
}
