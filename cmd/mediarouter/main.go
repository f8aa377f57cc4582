package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mediarouter",
	Short: "Media router - upload and serve media across storage providers",
	Long: `mediarouter stores photos and videos on up to four storage providers,
falling back to the primary provider when a secondary one fails.

Providers are configured through MEDIA_STORAGE1_* to MEDIA_STORAGE4_*.

Examples:
  mediarouter serve
  mediarouter upload --owner user-1 beach.jpg clip.mp4
  mediarouter url <record-id> --signed
  mediarouter delete <record-id>
  mediarouter reclaim --max 500`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFiles,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reclaimCmd)

	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "Environment files to load when present")
}

func loadEnvFiles(cmd *cobra.Command, _ []string) error {
	paths, _ := cmd.Flags().GetStringSlice("env-file")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}
