package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and maintain usage quotas",
}

var quotaShowKey string

var quotaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored counter for an identity key",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		u, err := env.Enforcer.Usage(cmd.Context(), quotaShowKey)
		if err != nil {
			return err
		}
		if u == nil {
			fmt.Printf("%s: never seen\n", quotaShowKey)
			return nil
		}
		fmt.Printf("%s: %d searches since %s (first seen %s, last seen %s)\n",
			u.Key, u.SearchCount,
			u.WindowStart.Format("2006-01-02 15:04:05"),
			u.FirstSeen.Format("2006-01-02"),
			u.LastSeen.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var quotaSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Zero counters idle for longer than the quota window",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.SweepStale(cmd.Context(), time.Now().Add(-cfg.Quota.Window()))
		if err != nil {
			return err
		}
		fmt.Printf("zeroed %d stale counters\n", n)
		return nil
	},
}

func init() {
	quotaShowCmd.Flags().StringVar(&quotaShowKey, "key", "", "identity key, e.g. ip:203.0.113.7 or acct:u1")
	_ = quotaShowCmd.MarkFlagRequired("key")
	quotaCmd.AddCommand(quotaShowCmd)
	quotaCmd.AddCommand(quotaSweepCmd)
	rootCmd.AddCommand(quotaCmd)
}
