package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mkessler/pulsetrack/internal/retention"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Manage the artifact corpus lifecycle",
}

var retentionOrganizeDate string

var retentionOrganizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Move loose artifacts into dated partitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		rm := retention.NewManager(cfg.GetDataDir())
		moved, err := rm.OrganizeByDate(retentionOrganizeDate)
		if err != nil {
			return err
		}

		if len(moved) == 0 {
			fmt.Println("Nothing to organize.")
			return nil
		}
		kinds := make([]string, 0, len(moved))
		for kind := range moved {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf("  %s: %d files\n", kind, len(moved[kind]))
		}
		return nil
	},
}

var retentionExpireDays int

var retentionExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Remove artifacts older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		days := cfg.Retention.DaysToKeep
		if retentionExpireDays > 0 {
			days = retentionExpireDays
		}

		rm := retention.NewManager(cfg.GetDataDir())
		removed := rm.Expire(days)
		fmt.Printf("Removed %d expired entries (keeping %d days).\n", len(removed), days)
		for _, path := range removed {
			fmt.Printf("  %s\n", path)
		}
		return nil
	},
}

var retentionBackupName string

var retentionBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the corpus into a backup directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		rm := retention.NewManager(cfg.GetDataDir())
		path, err := rm.Backup(retentionBackupName)
		if err != nil {
			return err
		}
		fmt.Printf("Backup created: %s\n", path)
		return nil
	},
}

var retentionArchiveName string

var retentionArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Compress the corpus into a zip archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		rm := retention.NewManager(cfg.GetDataDir())
		path, err := rm.Archive(retentionArchiveName)
		if err != nil {
			return err
		}
		fmt.Printf("Archive created: %s\n", path)
		return nil
	},
}

var retentionValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every stored artifact for JSON integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		rm := retention.NewManager(cfg.GetDataDir())
		report, err := rm.ValidateIntegrity()
		if err != nil {
			return err
		}

		fmt.Printf("Checked %d artifacts: %d valid, %d invalid\n",
			report.Total, len(report.Valid), len(report.Invalid))
		for _, inv := range report.Invalid {
			fmt.Printf("  %s: %s\n", inv.Path, inv.Error)
		}
		if len(report.Invalid) > 0 {
			return fmt.Errorf("%d invalid artifacts", len(report.Invalid))
		}
		return nil
	},
}

var retentionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rm := retention.NewManager(cfg.GetDataDir())
		stats, err := rm.Statistics()
		if err != nil {
			return err
		}

		fmt.Printf("Total: %d files, %.2f MB\n", stats.TotalFiles, stats.TotalSizeMB)
		fmt.Printf("Modified in last 7 days: %d\n", len(stats.RecentActivity))

		if len(stats.ByDirectory) > 0 {
			fmt.Println("\nBy directory:")
			dirs := make([]string, 0, len(stats.ByDirectory))
			for dir := range stats.ByDirectory {
				dirs = append(dirs, dir)
			}
			sort.Strings(dirs)
			for _, dir := range dirs {
				ds := stats.ByDirectory[dir]
				fmt.Printf("  %s: %d files, %.2f MB\n", dir, ds.Files, float64(ds.Size)/(1024*1024))
			}
		}

		if len(stats.ByEntity) > 0 {
			fmt.Println("\nBy entity:")
			entities := make([]string, 0, len(stats.ByEntity))
			for entity := range stats.ByEntity {
				entities = append(entities, entity)
			}
			sort.Strings(entities)
			for _, entity := range entities {
				fmt.Printf("  %s: %d files\n", entity, stats.ByEntity[entity].Files)
			}
		}
		return nil
	},
}

func init() {
	retentionOrganizeCmd.Flags().StringVar(&retentionOrganizeDate, "date", "", "Organize artifacts for this date (YYYY-MM-DD, default today)")
	retentionExpireCmd.Flags().IntVar(&retentionExpireDays, "days", 0, "Override retention window (days)")
	retentionBackupCmd.Flags().StringVar(&retentionBackupName, "name", "", "Backup directory name")
	retentionArchiveCmd.Flags().StringVar(&retentionArchiveName, "name", "", "Archive name")

	retentionCmd.AddCommand(retentionOrganizeCmd)
	retentionCmd.AddCommand(retentionExpireCmd)
	retentionCmd.AddCommand(retentionBackupCmd)
	retentionCmd.AddCommand(retentionArchiveCmd)
	retentionCmd.AddCommand(retentionValidateCmd)
	retentionCmd.AddCommand(retentionStatsCmd)
}
