package commands

import (
	"encoding/json"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/xaionaro-go/playercore/pkg/buildvars"
	"github.com/xaionaro-go/playercore/pkg/player"
)

var Version = &cobra.Command{
	Use:   "version",
	Short: "prints the build information",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		assertNoError(cmd.Context(), printBuildInfo(os.Stdout))
	},
}

func init() {
	Root.AddCommand(Version)
}

type buildVars struct {
	Version   string `json:",omitempty"`
	GitCommit string `json:",omitempty"`
	BuildDate string `json:",omitempty"`
}

type buildInfo struct {
	BuildVars *buildVars       `json:",omitempty"`
	Backends  []player.Backend `json:",omitempty"`
	BuildInfo *debug.BuildInfo `json:",omitempty"`
}

func getBuildInfo() buildInfo {
	result := buildInfo{
		BuildVars: &buildVars{
			Version:   buildvars.Version,
			GitCommit: buildvars.GitCommit,
		},
		Backends: player.SupportedBackends(),
	}
	if buildvars.BuildDate != nil {
		result.BuildVars.BuildDate = buildvars.BuildDate.UTC().Format("2006-01-02T15:04:05Z")
	}
	if *result.BuildVars == (buildVars{}) {
		result.BuildVars = nil
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return result
	}
	for idx, setting := range bi.Settings {
		if setting.Key != "-ldflags" {
			continue
		}
		setting.Value = "***"
		bi.Settings[idx] = setting
	}
	result.BuildInfo = bi
	return result
}

func printBuildInfo(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", " ")
	return enc.Encode(getBuildInfo())
}
