package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dep-resolver",
	Short: "Dependency resolver for software composition analysis",
	Long: `dep-resolver discovers the manifests and lock files of every supported build
ecosystem below one or more folders, reconstructs each project's dependency
forest (transitive where the build tool exposes it) and writes one uniform
result per project.

Supported ecosystems: npm, maven, gradle, go, nuget, ruby, python, php,
cocoapods, sbt, cargo and terraform.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
