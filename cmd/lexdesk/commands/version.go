package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roasbeef/lexdesk/internal/build"
	"github.com/roasbeef/lexdesk/internal/lexapi"
	"github.com/spf13/cobra"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long: `Display the lexdesk version with its commit, Go version and build tags,
plus the default backend address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(os.Stdout, currentVersion(), versionJSON)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false,
		"Print the build information as JSON")
}

// versionInfo describes the running binary.
type versionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit,omitempty"`
	GoVersion string   `json:"go_version,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Server    string   `json:"default_server"`
}

func currentVersion() versionInfo {
	commit := build.Commit
	if commit == "" {
		commit = build.CommitHash
	}

	return versionInfo{
		Version:   build.Version(),
		Commit:    commit,
		GoVersion: build.GoVersion,
		Tags:      build.Tags(),
		Server:    lexapi.DefaultBaseURL,
	}
}

// writeVersion prints v as a single line, or as JSON.
func writeVersion(w io.Writer, v versionInfo, asJSON bool) error {
	if asJSON {
		return writeJSON(w, v)
	}

	fields := []string{"lexdesk " + v.Version}
	if v.Commit != "" {
		fields = append(fields, "commit="+v.Commit)
	}
	if v.GoVersion != "" {
		fields = append(fields, "go="+v.GoVersion)
	}
	if len(v.Tags) > 0 {
		fields = append(fields, "tags="+strings.Join(v.Tags, ","))
	}

	_, err := fmt.Fprintln(w, strings.Join(fields, " "))
	return err
}
