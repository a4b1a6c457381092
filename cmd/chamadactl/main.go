// Command chamadactl administers the attendance store offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chamadactl",
	Short: "Offline administration for the Chamada attendance store",
	Long: `chamadactl works directly on the configured storage backend
(STORAGE_BACKEND, DATA_DIR, DATABASE_URL), without the HTTP server.

It bulk-enrolls students from a capture archive, exports the attendance
table and lists registered students.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
