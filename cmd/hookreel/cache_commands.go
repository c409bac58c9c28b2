package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hookreel/internal/mediacache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the media cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show media cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			stats, err := cache.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][]string{
				{"Directory", cache.Dir()},
				{"TTL", cache.TTL().String()},
				{"Valid entries", strconv.Itoa(stats.Entries)},
				{"Size", humanize.IBytes(uint64(max(stats.TotalBytes, 0)))},
				{"Expired", strconv.Itoa(stats.Expired)},
				{"Invalid", strconv.Itoa(stats.Invalid)},
			}))
			return nil
		},
	}
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired, invalid, and orphaned cache files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			before, err := cache.Stats()
			if err != nil {
				return err
			}
			removed, err := cache.Sweep()
			if err != nil {
				return err
			}
			after, err := cache.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if removed == 0 {
				fmt.Fprintln(out, "No cache files removed")
				return nil
			}
			freed := before.TotalBytes - after.TotalBytes
			fmt.Fprintf(out, "Removed %d file(s); %d valid entries remain (%s, %s freed from valid entries)\n",
				removed, after.Entries, humanize.IBytes(uint64(max(after.TotalBytes, 0))), humanize.IBytes(uint64(max(freed, 0))))
			return nil
		},
	}
}

func openCache(ctx *commandContext) (*mediacache.Cache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.baseLogger()
	if err != nil {
		return nil, err
	}
	return mediacache.New(cfg.Paths.CacheDir, time.Duration(cfg.Download.TTLHours)*time.Hour, logger)
}
