package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-nftcollection/internal/compiled"
	"github.com/ryanbastic/go-nftcollection/internal/config"
	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
	"github.com/ryanbastic/go-nftcollection/internal/storage"
)

func addressCommand() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the address the COLLECTION_* collection deploys to",
		Long: "Derives the collection address from the compiled code and the initial data. " +
			"The owner defaults to the wallet of WALLET_MNEMONIC; nothing is sent.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := config.LoadCollection()
			if err != nil {
				return err
			}
			codes, err := loadCodes(cfg.BuildDir)
			if err != nil {
				return fmt.Errorf("load compiled contracts from %s: %w", cfg.BuildDir, err)
			}

			if owner == "" {
				if owner, err = walletOwner(cfg.Network); err != nil {
					return err
				}
			}
			ownerAddr, err := parseAddr(owner)
			if err != nil {
				return err
			}

			svc := minter.New(nil, nil, codes, storage.NewMemoryStore(), nil, minter.Options{Network: cfg.Name}, logger)
			client, err := svc.Collection(minter.DeployRequest{
				Metadata: content.Metadata{
					Name:        coll.Name,
					Description: coll.Description,
					Image:       coll.Image,
				},
				RoyaltyPercent: coll.RoyaltyPercent,
			}, ownerAddr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, client.Address().String())
			logger.Debug("collection code", "hash", compiled.Encode(codes.Collection).HashBase64)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "collection owner (default: the configured wallet)")
	return cmd
}
