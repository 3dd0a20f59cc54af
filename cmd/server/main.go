package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title           Task Management API
// @version         1.0
// @description     Multi-tenant task management with role-based access, analytics and realtime updates.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var rootCmd = &cobra.Command{
	Use:           "task-api",
	Short:         "Task management API",
	SilenceUsage:  true,
	SilenceErrors: true,
	// serve is the default command
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
