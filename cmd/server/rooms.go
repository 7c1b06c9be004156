package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arhamfareed106/Social-Network-Platform/internal/config"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store/files"
	"github.com/arhamfareed106/Social-Network-Platform/internal/store/sqlite"
)

func newRoomsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage chat rooms directly in the database",
	}
	cmd.AddCommand(newRoomsCreateCmd(opts), newRoomsListCmd(opts))
	return cmd
}

func openStore(opts *rootOptions) (*sqlite.SQLiteStore, error) {
	cfg, _, err := opts.load(config.Config{})
	if err != nil {
		return nil, err
	}
	return sqlite.New(cfg.DatabasePath, files.NewDisk(cfg.MediaRoot))
}

func newRoomsCreateCmd(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create USER...",
		Short: "Create a room with the given participants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			room, err := st.CreateRoom(cmd.Context(), name, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "room %d created with %s\n", room.ID, strings.Join(room.Participants, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "optional display name")
	return cmd
}

func newRoomsListCmd(opts *rootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rooms a user participates in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			rooms, err := st.ListRoomsForUser(cmd.Context(), user)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPARTICIPANTS\tLAST ACTIVITY")
			for _, r := range rooms {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, strings.Join(r.Participants, ","), r.LastActivityAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "participant user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
