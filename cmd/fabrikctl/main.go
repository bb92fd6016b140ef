package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabrikdev/fabrik/pkg/client"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	serverAddr string
	caCertPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fabrikctl",
	Short:   "fabrikctl - command-line client for the Fabrik cache daemon",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"fabrikctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "127.0.0.1:7070", "fabrikd gRPC address")
	rootCmd.PersistentFlags().StringVar(&caCertPath, "ca-cert", "", "CA certificate for TLS (empty disables TLS)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
}

func dial() (*client.Client, error) {
	return client.New(serverAddr, client.Options{CACertPath: caCertPath})
}

var getCmd = &cobra.Command{
	Use:   "get <hash> <output-file>",
	Short: "Fetch a cached object and write it to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := c.Get(args[0])
		if err != nil {
			return fmt.Errorf("get %s: %w", args[0], err)
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[1], err)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(data), args[1])
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <hash> <input-file>",
	Short: "Upload a file's contents under a hex hash",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := hex.DecodeString(args[0]); err != nil {
			return fmt.Errorf("hash must be hex-encoded: %w", err)
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}

		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Put(args[0], data)
		if err != nil {
			return fmt.Errorf("put %s: %w", args[0], err)
		}
		fmt.Printf("stored %d bytes (success=%v)\n", resp.SizeBytes, resp.Success)
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <hash>",
	Short: "Report whether a hash is cached and its size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Exists(args[0])
		if err != nil {
			return fmt.Errorf("stat %s: %w", args[0], err)
		}
		if !resp.Exists {
			fmt.Printf("%s: not cached\n", args[0])
			return nil
		}
		fmt.Printf("%s: cached, %d bytes\n", args[0], resp.SizeBytes)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <hash>",
	Short: "Evict a cached object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Delete(args[0])
		if err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}
		if !resp.Existed {
			fmt.Printf("%s: not cached\n", args[0])
			return nil
		}
		fmt.Printf("%s: deleted\n", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print server-wide cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.GetStats()
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		fmt.Printf("artifacts:     %d\n", resp.ArtifactCount)
		fmt.Printf("total bytes:   %d\n", resp.TotalBytes)
		fmt.Printf("cache hits:    %d\n", resp.CacheHits)
		fmt.Printf("cache misses:  %d\n", resp.CacheMisses)
		fmt.Printf("uptime (sec):  %d\n", resp.UptimeSeconds)
		return nil
	},
}
