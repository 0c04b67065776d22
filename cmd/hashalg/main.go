// hashalg CLI - digest, compare and store structural hash trees
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/hashalg/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("hashalg")

// options holds the persistent flags shared by every subcommand.
type options struct {
	verbose   int
	dir       string
	storePath string
	colorMode string

	// set in PersistentPreRunE
	manifest *manifest.Manifest
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "hashalg",
		Short:         "Digest, compare and store structural hash trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})

	root.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "log verbosity (repeat for more)")
	root.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "directory to search for "+manifest.FileName)
	root.PersistentFlags().StringVar(&opts.storePath, "store", "", "digest store path (overrides "+manifest.FileName+")")
	root.PersistentFlags().StringVar(&opts.colorMode, "color", "auto", "colorize output (auto|on|off)")

	root.AddCommand(
		newDigestCmd(),
		newEqualCmd(),
		newCheckCmd(opts),
		newStoreCmd(opts),
	)
	return root
}

// setup loads the manifest (if any) and configures logging and color.
func (o *options) setup() error {
	m, err := manifest.FindAndLoad(o.dir)
	if err != nil {
		return err
	}
	o.manifest = m

	verbosity := o.verbose
	var logFile *string
	if m != nil {
		if verbosity == 0 {
			verbosity = m.Log.Verbosity
		}
		if m.Log.File != "" {
			path := m.Log.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(m.Dir, path)
			}
			logFile = &path
		}
	}
	commonlog.Configure(verbosity, logFile)

	switch o.colorMode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
	default:
		return fmt.Errorf("invalid --color %q (want auto|on|off)", o.colorMode)
	}

	if m != nil {
		log.Debugf("using manifest %s", filepath.Join(m.Dir, manifest.FileName))
	}
	return nil
}

// resolveStorePath picks the store path from --store, the manifest, or the
// default relative to --dir.
func (o *options) resolveStorePath() string {
	switch {
	case o.storePath != "":
		return o.storePath
	case o.manifest != nil:
		return o.manifest.StorePath()
	}
	return filepath.Join(o.dir, manifest.DefaultStorePath)
}
