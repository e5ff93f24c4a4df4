package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/logger"
	"github.com/karthiknish/profici-comp-sub000/internal/store"
)

// NewCacheCmd creates the firmographics cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the firmographics cache",
		Long:  `Inspect, clean, and clear the SQLite cache in front of the live firmographics API.`,
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and storage information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats()
		},
	})

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove entries older than the configured TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheCleanup()
		},
	}
	cacheCmd.AddCommand(cleanupCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached record and miss",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			return runCacheClear(confirm)
		},
	}
	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	cacheCmd.AddCommand(clearCmd)

	return cacheCmd
}

func openCacheStore() (*store.Store, func(), error) {
	dir := config.Get().Firmographics.StoreDir
	if dir == "" {
		return nil, nil, fmt.Errorf("firmographics.store_dir is not configured")
	}
	cacheStore, err := store.NewStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	return cacheStore, func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}, nil
}

func runCacheStats() error {
	cacheStore, closeStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer closeStore()

	stats, err := cacheStore.GetCacheStats()
	if err != nil {
		return fmt.Errorf("failed to get cache statistics: %w", err)
	}

	fmt.Println("📊 Firmographics Cache")
	fmt.Println("======================")
	fmt.Printf("🏢 Records cached: %d\n", stats.RecordCount)
	fmt.Printf("🚫 Known misses: %d\n", stats.MissCount)
	fmt.Printf("💾 Cache size: %.2f MB\n", float64(stats.CacheSize)/1024/1024)
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("📅 Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func runCacheCleanup() error {
	cacheStore, closeStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ttl := config.Get().Firmographics.TTLDuration()
	if err := cacheStore.CleanupOldCache(ttl); err != nil {
		return fmt.Errorf("failed to clean up cache: %w", err)
	}

	fmt.Printf("✅ Removed entries older than %s\n", ttl)
	return nil
}

func runCacheClear(confirm bool) error {
	if !confirm {
		fmt.Print("⚠️  This will remove all cached firmographic records. Continue? [y/N]: ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" && response != "yes" {
			fmt.Println("Cache clear cancelled")
			return nil
		}
	}

	cacheStore, closeStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := cacheStore.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Println("✅ Cache cleared successfully")
	return nil
}
