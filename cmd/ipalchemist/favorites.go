package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/aryanox/ipalchemist/internal/model"
	"github.com/spf13/cobra"
)

// NewFavoritesCmd creates the favorites command group.
func NewFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage pinned egress points",
		Long: `Favorites are pinned endpoints keyed by host. When any favorite is
present in the fetched pool, rotation probes favorites before anything
else.`,
	}

	cmd.AddCommand(newFavoritesListCmd())
	cmd.AddCommand(newFavoritesAddCmd())
	cmd.AddCommand(newFavoritesRemoveCmd())

	return cmd
}

func newFavoritesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pinned egress points",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFor(cmd)
			if err != nil {
				return err
			}

			favorites := a.manager.Favorites()
			if len(favorites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites saved.")
				return nil
			}
			for _, fav := range favorites {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-21s %-7s %-3s added %s\n",
					net.JoinHostPort(fav.Host, strconv.Itoa(int(fav.Port))),
					fav.Protocol, fav.Country, fav.AddedAt.Format(time.DateOnly))
			}
			return nil
		},
	}
}

func newFavoritesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <host:port[:protocol]>",
		Short: "Pin an egress point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFor(cmd)
			if err != nil {
				return err
			}

			record, err := parseEndpoint(args[0])
			if err != nil {
				return err
			}
			country, err := cmd.Flags().GetString("country")
			if err != nil {
				return err
			}
			record.Country = country

			added, err := a.manager.AddFavorite(record)
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already a favorite.\n", record.Host)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s (%s).\n", record.Addr(), record.Protocol)
			return nil
		},
	}

	cmd.Flags().String("country", "", "Country code stored with the favorite")

	return cmd
}

func newFavoritesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <host>",
		Short: "Unpin an egress point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFor(cmd)
			if err != nil {
				return err
			}

			removed, err := a.manager.RemoveFavorite(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not a favorite.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s.\n", args[0])
			return nil
		},
	}
}

// appFor wires the app for a subcommand.
func appFor(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// parseEndpoint parses host:port[:protocol], defaulting to http.
func parseEndpoint(s string) (model.ProxyRecord, error) {
	record := model.ProxyRecord{Protocol: model.ProtocolHTTP, LatencyMs: -1}

	host, rest, found := strings.Cut(s, ":")
	if !found || host == "" || rest == "" {
		return model.ProxyRecord{}, fmt.Errorf("invalid endpoint %q (want host:port[:protocol])", s)
	}
	record.Host = host

	portStr, protocolStr, hasProtocol := strings.Cut(rest, ":")
	if hasProtocol {
		protocol, err := model.ParseProtocol(protocolStr)
		if err != nil {
			return model.ProxyRecord{}, err
		}
		record.Protocol = protocol
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return model.ProxyRecord{}, fmt.Errorf("invalid port in %q", s)
	}
	record.Port = uint16(port)

	if err := record.Validate(); err != nil {
		return model.ProxyRecord{}, err
	}
	return record, nil
}
