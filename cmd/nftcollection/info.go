package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/xssnick/tonutils-go/address"

	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
)

// collectionInfo is what the info command prints.
type collectionInfo struct {
	Address        string            `json:"address"`
	Owner          string            `json:"owner"`
	NextItemIndex  uint64            `json:"next_item_index"`
	Metadata       *content.Metadata `json:"metadata,omitempty"`
	RoyaltyFactor  uint16            `json:"royalty_factor"`
	RoyaltyBase    uint16            `json:"royalty_base"`
	RoyaltyAddress string            `json:"royalty_address"`
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <collection>",
		Short: "Print the collection data and royalty params as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collAddr, err := parseAddr(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			n, codes, err := openNetwork(ctx, cfg.Network, false, logger)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := newService(n, codes, store, nil, cfg.Network, logger)
			return printInfo(ctx, cmd.OutOrStdout(), svc, collAddr)
		},
	}
}

func printInfo(ctx context.Context, out io.Writer, svc *minter.Service, collAddr *address.Address) error {
	data, err := svc.CollectionData(ctx, collAddr)
	if err != nil {
		return err
	}
	royalty, err := svc.RoyaltyParams(ctx, collAddr)
	if err != nil {
		return err
	}

	info := collectionInfo{
		Address:        data.Address.String(),
		Owner:          data.Owner.String(),
		NextItemIndex:  data.NextItemIndex,
		Metadata:       data.Metadata,
		RoyaltyFactor:  royalty.Factor,
		RoyaltyBase:    royalty.Base,
		RoyaltyAddress: royalty.Address.String(),
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection info: %w", err)
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
