/*
Potluck starts and administers the potluck recipe and menu server.

Usage:

	potluck [command] [flags]

The commands are:

	serve
		Run the server until it is interrupted.
	adduser
		Create a user directly in the database.
	apikey create, apikey revoke
		Issue or revoke an API key directly in the database.
	routes
		Print every route the server would serve.
	config
		Print the config the server would run with.
	version
		Print the version of potluck.

The flags common to every command are:

	-c, --config PATH
		Use the given file for the configuration instead of './potluck.yml'.
		The file must be in JSON, YAML, or TOML format. If the default file does
		not exist, the default configuration is used.
*/
package main

import (
	"fmt"
	"os"

	"github.com/dekarrin/jellog"
	"github.com/dekarrin/potluck/server"
	"github.com/spf13/cobra"
)

const (
	exitSuccess   = 0
	exitError     = 1
	exitPanic     = 2
	exitInterrupt = 3
)

// set at build time with -ldflags.
var (
	version = "0.1.0"
	commit  = "none"
)

var exitCode int

var (
	env    = &server.Environment{}
	logger = newCLILogger()
)

var rootCmd = &cobra.Command{
	Use:   "potluck",
	Short: "Potluck serves recipes, categories, and menus",
	Long: `Potluck is a REST server for a household's recipes, the categories they
are sorted into, and the menus they are planned on.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(configFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addUserCmd)
	rootCmd.AddCommand(apiKeyCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			fmt.Fprintf(os.Stderr, "fatal panic: %v\n", panicErr)
			exitCode = exitPanic
		}
		os.Exit(exitCode)
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		if exitCode == exitSuccess {
			exitCode = exitError
		}
	}
}

func newCLILogger() jellog.Logger[string] {
	stdErrOutput := jellog.NewStderrHandler(nil)
	l := jellog.New(jellog.Defaults[string]().WithComponent("potluck"))
	l.AddHandler(jellog.LvTrace, stdErrOutput)
	return l
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of potluck",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "potluck v%s (%s)\n", version, commit)
	},
}
