package cmd

import (
	"fmt"

	"github.com/a2cps/phantomdb-go/cmd/export"
	"github.com/a2cps/phantomdb-go/cmd/initdb"
	"github.com/a2cps/phantomdb-go/cmd/post"
	"github.com/a2cps/phantomdb-go/internal/conf"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phantomdb",
		Short: "MRI phantom QC status tracker",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		initdb.Command(settings),
		export.Command(settings),
		post.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Products, "products", viper.GetString("products"), "Root directory of the MRI products tree")
	rootCmd.PersistentFlags().StringVar(&settings.Output.SQLite.Path, "url", viper.GetString("output.sqlite.path"), "Path of the SQLite database")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
