package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgFile string

// rootCmd serves the CSV file when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "csvlabel",
	Short: "csvlabel - label the rows of a CSV file from the browser",
	Long: `csvlabel serves a CSV file and a static labeling page over HTTP.
Label edits are written back to the CSV file atomically and mirrored to a
<name>_labeled.csv snapshot next to it.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file, JSON or YAML (optional)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.IntP("port", "p", 8000, "port to listen on")
	flags.StringP("csv", "c", "data.csv", "CSV file to label")
	flags.String("host", "", "host to bind (default all interfaces)")
	flags.String("static-dir", ".", "directory served for non-CSV paths")
	flags.Bool("watch", false, "log changes made to the CSV file by other programs")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
