package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Hara602/gcodeSentry/internal/blocklist"
	"github.com/spf13/cobra"
)

var errNoBlocklist = errors.New("blocklist_db is not set in the configuration")

func (o *rootOptions) openBlocklist() (*blocklist.DB, error) {
	settings, err := o.loadSettings()
	if err != nil {
		return nil, err
	}
	if settings.BlocklistDB == "" {
		return nil, errNoBlocklist
	}
	return blocklist.Open(settings.BlocklistDB)
}

func newBlockCmd(opts *rootOptions) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "block LABEL",
		Short: "Never mirror the device with this label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.TrimSpace(args[0])
			if label == "" {
				return fmt.Errorf("label must not be empty")
			}
			db, err := opts.openBlocklist()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Add(label, reason); err != nil {
				return err
			}
			cmd.Printf("Blocked %s\n", label)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the device is blocked")
	return cmd
}

func newUnblockCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unblock LABEL",
		Short: "Mirror the device with this label again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openBlocklist()
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := db.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%s is not blocked", args[0])
			}
			cmd.Printf("Unblocked %s\n", args[0])
			return nil
		},
	}
}

func newBlockedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "blocked",
		Short: "List blocked device labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openBlocklist()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				cmd.Println("No blocked devices")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s\t%s", e.Label, e.CreatedAt.Format("2006-01-02 15:04:05"))
				if e.Reason != "" {
					line += "\t" + e.Reason
				}
				cmd.Println(line)
			}
			return nil
		},
	}
}
