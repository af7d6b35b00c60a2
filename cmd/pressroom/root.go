package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "pressroom",
	Short:         "Pressroom serves the blog, news and comment moderation site.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, usersCmd)
}
