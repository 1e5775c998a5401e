// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// It is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	verbose bool
}

// Execute runs the ctmctree CLI against os.Args.
//
// Logging:
//   - Default: info level, or the level set in the config file
//   - With --verbose (-v): debug level
//
// Example:
//
//	func main() {
//	    cli.SetVersion("v1.0.0", "abc123", "2025-12-20")
//	    if err := cli.Execute(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	return newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// newRootCmd builds the command tree writing results to out and logs to errw.
func newRootCmd(out, errw io.Writer) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "ctmctree",
		Short:         "ctmctree evaluates CTMC likelihoods on trees",
		Long:          `ctmctree computes the weighted log-likelihood of i.i.d. site observations under continuous-time Markov chains evolving along a rooted tree, together with derivatives with respect to the log branch scales.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if flags.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(errw, level)))
		},
	}

	root.SetOut(out)
	root.SetErr(errw)
	root.SetVersionTemplate(fmt.Sprintf("ctmctree %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newEvalCmd(flags))
	root.AddCommand(newMarginalsCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newExpectCmd(flags))

	return root
}
