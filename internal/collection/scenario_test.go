package collection_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/tlb"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/collection"
	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/sandbox"
)

var (
	collectionMeta = content.Metadata{
		Name:        "OnChain collection",
		Description: "Collection of items with onChain metadata",
		Image:       "https://raw.githubusercontent.com/Cosmodude/Nexton/main/Nexton_Logo.jpg",
	}
	itemMeta = content.Metadata{
		Name:        "OnChain",
		Description: "Holds onchain metadata",
		Image:       "https://raw.githubusercontent.com/Cosmodude/Nexton/main/Nexton_Logo.jpg",
	}
)

type fixture struct {
	bc       *sandbox.Blockchain
	deployer *sandbox.Treasury
	client   *collection.Client
	queryIDs collection.QueryIDSource
}

func setup(t *testing.T) *fixture {
	t.Helper()

	bc := sandbox.New()
	bc.RegisterNFT(sandbox.CollectionCode, sandbox.ItemCode)
	deployer := bc.Treasury("deployer")

	collContent, err := content.BuildCollectionContentCell(collectionMeta)
	require.NoError(t, err)

	client, err := collection.NewFromConfig(collection.Config{
		Owner:             deployer.Address(),
		NextItemIndex:     0,
		CollectionContent: collContent,
		ItemCode:          sandbox.ItemCode,
		Royalty: collection.RoyaltyParams{
			Factor:  5,
			Base:    100,
			Address: deployer.Address(),
		},
	}, sandbox.CollectionCode, 0)
	require.NoError(t, err)

	res, err := client.SendDeploy(context.Background(), deployer, tlb.MustFromTON("0.05"))
	require.NoError(t, err)
	require.True(t, res.Has(chain.Match{
		From:    deployer.Address(),
		To:      client.Address(),
		Deploy:  chain.Bool(true),
		Success: chain.Bool(true),
	}), "deploy transaction: %+v", res.Transactions)

	return &fixture{
		bc:       bc,
		deployer: deployer,
		client:   client,
		queryIDs: collection.SequentialQueryIDs(1),
	}
}

func (f *fixture) mintOptions(t *testing.T, index uint64) collection.MintOptions {
	t.Helper()
	itemContent, err := content.BuildItemContentCell(itemMeta)
	require.NoError(t, err)
	return collection.MintOptions{
		Value:       tlb.MustFromTON("0.04"),
		QueryID:     f.queryIDs.Next(),
		ItemIndex:   index,
		Amount:      tlb.MustFromTON("0.014"),
		ItemOwner:   f.deployer.Address(),
		ItemContent: itemContent,
	}
}

func TestCollection_Deploy(t *testing.T) {
	f := setup(t)

	acc, ok := f.bc.Account(f.client.Address())
	require.True(t, ok)
	assert.True(t, acc.Active)
	assert.NoError(t, f.bc.WaitForDeploy(context.Background(), f.client.Address()))
}

func TestCollection_ContentRoundTrip(t *testing.T) {
	f := setup(t)

	data, err := f.client.GetCollectionData(context.Background(), f.bc)
	require.NoError(t, err)

	want, err := content.BuildCollectionContentCell(collectionMeta)
	require.NoError(t, err)
	assert.Equal(t, want.Hash(), data.CollectionContent.Hash())

	parsed, err := content.Parse(data.CollectionContent)
	require.NoError(t, err)
	assert.Equal(t, collectionMeta, parsed)

	assert.Equal(t, uint64(0), data.NextItemIndex)
	assert.True(t, chain.SameAddress(f.deployer.Address(), data.Owner))
}

func TestCollection_OwnerMints(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	before, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)

	itemAddr, err := f.client.GetItemAddressByIndex(ctx, f.bc, before.NextItemIndex)
	require.NoError(t, err)

	res, err := f.client.SendMint(ctx, f.deployer, f.mintOptions(t, before.NextItemIndex))
	require.NoError(t, err)

	assert.True(t, res.Has(chain.Match{
		From:     f.deployer.Address(),
		To:       f.client.Address(),
		Op:       chain.Uint32(collection.OpMint),
		Success:  chain.Bool(true),
		ExitCode: chain.Int32(0),
	}), "mint transaction: %+v", res.Transactions)
	assert.True(t, res.Has(chain.Match{
		From:    f.client.Address(),
		To:      itemAddr,
		Deploy:  chain.Bool(true),
		Success: chain.Bool(true),
	}), "item deploy: %+v", res.Transactions)

	after, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)
	assert.Equal(t, before.NextItemIndex+1, after.NextItemIndex)

	item, ok := f.bc.Account(itemAddr)
	require.True(t, ok)
	assert.True(t, item.Active)

	st, err := f.bc.RunGetMethod(ctx, itemAddr, "get_nft_data")
	require.NoError(t, err)
	owner, err := st.Address(3)
	require.NoError(t, err)
	assert.True(t, chain.SameAddress(f.deployer.Address(), owner))
	itemContent, err := st.Cell(4)
	require.NoError(t, err)
	parsed, err := content.Parse(itemContent)
	require.NoError(t, err)
	assert.Equal(t, itemMeta, parsed)
}

func TestCollection_NonOwnerMintRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stranger := f.bc.Treasury("not-owner")

	before, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)

	res, err := f.client.SendMint(ctx, stranger, f.mintOptions(t, before.NextItemIndex))
	require.NoError(t, err)

	assert.True(t, res.Has(chain.Match{
		From:     stranger.Address(),
		To:       f.client.Address(),
		Success:  chain.Bool(false),
		ExitCode: chain.Int32(collection.ExitCodeUnauthorized),
	}), "mint transaction: %+v", res.Transactions)
	assert.True(t, res.Has(chain.Match{From: f.client.Address(), To: stranger.Address()}), "expected bounce")
	assert.False(t, res.Has(chain.Match{Deploy: chain.Bool(true)}))

	after, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)
	assert.Equal(t, before.NextItemIndex, after.NextItemIndex)
}

func TestCollection_OwnerMintThenStrangerRemintRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stranger := f.bc.Treasury("not-owner")

	itemAddr, err := f.client.GetItemAddressByIndex(ctx, f.bc, 0)
	require.NoError(t, err)

	res, err := f.client.SendMint(ctx, f.deployer, f.mintOptions(t, 0))
	require.NoError(t, err)
	tx, ok := res.Outcome(f.client.Address())
	require.True(t, ok)
	require.True(t, tx.Success)
	assert.Equal(t, int32(0), tx.ExitCode)

	data, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)
	require.Equal(t, uint64(1), data.NextItemIndex)

	item, ok := f.bc.Account(itemAddr)
	require.True(t, ok)
	assert.True(t, item.Active)
	assert.Positive(t, item.Balance.Nano().Sign(), "item account is funded")

	res, err = f.client.SendMint(ctx, stranger, f.mintOptions(t, 0))
	require.NoError(t, err)
	assert.True(t, res.Has(chain.Match{
		From:     stranger.Address(),
		To:       f.client.Address(),
		Success:  chain.Bool(false),
		ExitCode: chain.Int32(collection.ExitCodeUnauthorized),
	}), "remint transaction: %+v", res.Transactions)
	assert.False(t, res.Has(chain.Match{Deploy: chain.Bool(true)}), "nothing is deployed")

	data, err = f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), data.NextItemIndex)
}

func TestCollection_ItemAddressRangeIncludesNext(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for next := uint64(0); next < 2; next++ {
		_, err := f.client.GetItemAddressByIndex(ctx, f.bc, next)
		assert.NoError(t, err, "next slot %d is queryable", next)
		_, err = f.client.GetItemAddressByIndex(ctx, f.bc, next+1)
		assert.ErrorIs(t, err, collection.ErrIndexOutOfRange)

		_, err = f.client.SendMint(ctx, f.deployer, f.mintOptions(t, next))
		require.NoError(t, err)
	}
}

func TestCollection_IndexBeyondNextRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.client.SendMint(ctx, f.deployer, f.mintOptions(t, 5))
	require.NoError(t, err)

	tx, ok := res.Outcome(f.client.Address())
	require.True(t, ok)
	assert.False(t, tx.Success)
	assert.Equal(t, collection.ExitCodeIndexOutOfRange, tx.ExitCode)

	_, err = f.client.GetItemAddressByIndex(ctx, f.bc, 5)
	assert.ErrorIs(t, err, collection.ErrIndexOutOfRange)
}

func TestCollection_ItemAddressStableAcrossMint(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	before, err := f.client.GetItemAddressByIndex(ctx, f.bc, 0)
	require.NoError(t, err)

	_, err = f.client.SendMint(ctx, f.deployer, f.mintOptions(t, 0))
	require.NoError(t, err)

	after, err := f.client.GetItemAddressByIndex(ctx, f.bc, 0)
	require.NoError(t, err)
	assert.True(t, chain.SameAddress(before, after), "before %s, after %s", before, after)

	next, err := f.client.GetItemAddressByIndex(ctx, f.bc, 1)
	require.NoError(t, err)
	assert.False(t, chain.SameAddress(before, next))
}

func TestCollection_RoyaltyRoundTrip(t *testing.T) {
	f := setup(t)

	royalty, err := f.client.GetRoyaltyParams(context.Background(), f.bc)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), royalty.Factor)
	assert.Equal(t, uint16(100), royalty.Base)
	assert.True(t, chain.SameAddress(f.deployer.Address(), royalty.Address))
}

func TestCollection_ChangeOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	newOwner := f.bc.Treasury("new-owner")

	res, err := f.client.SendChangeOwner(ctx, newOwner, tlb.MustFromTON("0.02"), f.queryIDs.Next(), newOwner.Address())
	require.NoError(t, err)
	assert.True(t, res.Has(chain.Match{To: f.client.Address(), ExitCode: chain.Int32(collection.ExitCodeUnauthorized)}))

	res, err = f.client.SendChangeOwner(ctx, f.deployer, tlb.MustFromTON("0.02"), f.queryIDs.Next(), newOwner.Address())
	require.NoError(t, err)
	assert.True(t, res.Has(chain.Match{To: f.client.Address(), Success: chain.Bool(true)}))

	data, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)
	assert.True(t, chain.SameAddress(newOwner.Address(), data.Owner))

	// The previous owner can no longer mint.
	res, err = f.client.SendMint(ctx, f.deployer, f.mintOptions(t, 0))
	require.NoError(t, err)
	assert.True(t, res.Has(chain.Match{To: f.client.Address(), ExitCode: chain.Int32(collection.ExitCodeUnauthorized)}))
}

func TestCollection_RepeatedDeployKeepsState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.client.SendMint(ctx, f.deployer, f.mintOptions(t, 0))
	require.NoError(t, err)

	res, err := f.client.SendDeploy(ctx, f.deployer, tlb.MustFromTON("0.05"))
	require.NoError(t, err)
	assert.False(t, res.Has(chain.Match{Deploy: chain.Bool(true)}))

	data, err := f.client.GetCollectionData(ctx, f.bc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), data.NextItemIndex)
}

func TestCollection_QueriesBeforeDeploy(t *testing.T) {
	bc := sandbox.New()
	bc.RegisterNFT(sandbox.CollectionCode, sandbox.ItemCode)
	deployer := bc.Treasury("deployer")

	collContent, err := content.BuildCollectionContentCell(collectionMeta)
	require.NoError(t, err)
	client, err := collection.NewFromConfig(collection.Config{
		Owner:             deployer.Address(),
		CollectionContent: collContent,
		ItemCode:          sandbox.ItemCode,
		Royalty:           collection.RoyaltyParams{Factor: 5, Base: 100, Address: deployer.Address()},
	}, sandbox.CollectionCode, 0)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.GetCollectionData(ctx, bc)
	assert.ErrorIs(t, err, collection.ErrNotDeployed)
	_, err = client.GetRoyaltyParams(ctx, bc)
	assert.ErrorIs(t, err, collection.ErrNotDeployed)
	_, err = client.GetItemAddressByIndex(ctx, bc, 0)
	assert.ErrorIs(t, err, collection.ErrNotDeployed)

	opened := collection.NewFromAddress(client.Address())
	_, err = opened.SendDeploy(ctx, deployer, tlb.MustFromTON("0.05"))
	assert.ErrorIs(t, err, collection.ErrNoStateInit)
}
