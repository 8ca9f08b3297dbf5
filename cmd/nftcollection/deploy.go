package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/config"
	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
)

func deployCommand() *cobra.Command {
	var sandboxed bool
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the collection described by COLLECTION_* and mint item 0",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := config.LoadCollection()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			n, codes, err := openNetwork(ctx, cfg.Network, sandboxed, logger)
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
			return deployAndMint(ctx, cmd.OutOrStdout(), svc, via, coll)
		},
	}
	cmd.Flags().BoolVar(&sandboxed, "sandbox", false, "run against an in-process ledger")
	return cmd
}

// deployAndMint deploys coll, then mints item 0 with the default item
// metadata to the sender.
func deployAndMint(ctx context.Context, out io.Writer, svc *minter.Service, via chain.Sender, coll config.Collection) error {
	deployed, err := svc.DeployCollection(ctx, via, minter.DeployRequest{
		Metadata: content.Metadata{
			Name:        coll.Name,
			Description: coll.Description,
			Image:       coll.Image,
		},
		RoyaltyPercent: coll.RoyaltyPercent,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "collection: %s\n", deployed.Address.String())
	if deployed.ExplorerURL != "" {
		fmt.Fprintf(out, "explorer:   %s\n", deployed.ExplorerURL)
	}

	first := uint64(0)
	minted, err := svc.Mint(ctx, via, deployed.Address, minter.MintRequest{Index: &first})
	if err != nil {
		if errors.Is(err, minter.ErrMintRejected) && minted != nil {
			return fmt.Errorf("mint item 0: exit code %d: %w", minted.ExitCode, err)
		}
		return fmt.Errorf("mint item 0: %w", err)
	}
	fmt.Fprintf(out, "item 0:     %s\n", minted.ItemAddress.String())
	return nil
}
