package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tally/cli/render"
	"github.com/pithecene-io/tally/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version       string `json:"version" yaml:"version"`
	ReportVersion string `json:"report_version" yaml:"report_version"`
	Commit        string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  OutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		return r.Render(VersionResponse{
			Version:       types.Version,
			ReportVersion: types.ReportVersion,
			Commit:        commit,
		})
	}
}
