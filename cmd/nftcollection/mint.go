package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-nftcollection/internal/minter"
)

func mintCommand() *cobra.Command {
	var (
		index int64
		owner string
		meta  = minter.DefaultItemMetadata
	)
	cmd := &cobra.Command{
		Use:   "mint <collection>",
		Short: "Mint one item of a deployed collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collAddr, err := parseAddr(args[0])
			if err != nil {
				return err
			}
			req := minter.MintRequest{Metadata: meta}
			if index >= 0 {
				i := uint64(index)
				req.Index = &i
			}
			if owner != "" {
				if req.Owner, err = parseAddr(owner); err != nil {
					return err
				}
			}
			if err := req.Metadata.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			n, codes, err := openNetwork(ctx, cfg.Network, false, logger)
			if err != nil {
				return err
			}
			via, err := n.requireSender()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			notifier, err := newNotifier(cfg, logger)
			if err != nil {
				return err
			}
			defer notifier.Close()

			svc := newService(n, codes, store, notifier, cfg.Network, logger)
			res, err := svc.Mint(ctx, via, collAddr, req)
			if err != nil {
				if errors.Is(err, minter.ErrMintRejected) && res != nil {
					return fmt.Errorf("item %d: exit code %d: %w", res.ItemIndex, res.ExitCode, err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "item %d: %s\n", res.ItemIndex, res.ItemAddress.String())
			fmt.Fprintf(out, "query id: %d\n", res.QueryID)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&index, "index", -1, "item index (default: the next index of the collection)")
	f.StringVar(&owner, "owner", "", "item owner (default: the configured wallet)")
	f.StringVar(&meta.Name, "name", meta.Name, "item name")
	f.StringVar(&meta.Description, "description", meta.Description, "item description")
	f.StringVar(&meta.Image, "image", meta.Image, "item image URL")
	return cmd
}

