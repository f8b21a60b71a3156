package app

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexquote/swap-quoter/business/market/domain"
	"github.com/dexquote/swap-quoter/internal/apperror"
	"github.com/dexquote/swap-quoter/internal/config"
	"github.com/dexquote/swap-quoter/internal/logger"
)

var (
	tokenA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	pairAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	poolAddr = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

// fakeChain is a programmable ChainReader that counts on-chain reads.
type fakeChain struct {
	v2Pair      common.Address
	v3Pools     map[int64]common.Address
	v4States    map[common.Hash]*domain.PoolState
	reserves    *domain.PoolState
	poolState   *domain.PoolState
	codeless    map[common.Address]bool
	stateReads  int
	resolveErrs map[int64]error

	name     string
	symbol   string
	decimals int64
	metaErr  error
	metaReads int
}

func (f *fakeChain) V2PairAddress(ctx context.Context, network string, factory, tokenA, tokenB common.Address) (common.Address, error) {
	return f.v2Pair, nil
}

func (f *fakeChain) V2Reserves(ctx context.Context, network string, pair common.Address) (*domain.PoolState, error) {
	f.stateReads++
	return f.reserves, nil
}

func (f *fakeChain) V3PoolAddress(ctx context.Context, network string, factory, tokenA, tokenB common.Address, feeTier int64) (common.Address, error) {
	if err, ok := f.resolveErrs[feeTier]; ok {
		return common.Address{}, err
	}
	return f.v3Pools[feeTier], nil
}

func (f *fakeChain) V3PoolState(ctx context.Context, network string, pool common.Address) (*domain.PoolState, error) {
	f.stateReads++
	return f.poolState, nil
}

func (f *fakeChain) V4PoolState(ctx context.Context, network string, stateView common.Address, poolID common.Hash) (*domain.PoolState, error) {
	f.stateReads++
	if state, ok := f.v4States[poolID]; ok {
		return state, nil
	}
	return domain.NewLiquidityState(domain.VersionV4, big.NewInt(0), big.NewInt(0), 0), nil
}

func (f *fakeChain) HasCode(ctx context.Context, network string, addr common.Address) (bool, error) {
	return !f.codeless[addr], nil
}

func (f *fakeChain) TokenMetadata(ctx context.Context, network string, token common.Address) (string, string, int64, error) {
	f.metaReads++
	if f.metaErr != nil {
		return "", "", 0, f.metaErr
	}
	return f.name, f.symbol, f.decimals, nil
}

func marketConfig() *config.Config {
	return &config.Config{
		Networks: map[string]config.NetworkConfig{
			"mainnet": {
				ChainID:     1,
				V2Factory:   "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
				V3Factory:   "0x1F98431c8aD98523631AE4a59f267346ea31F984",
				V4StateView: "0x7fFE42C4a5DEeA5b0feC41C94C136Cf115597227",
			},
		},
		Cache: config.CacheConfig{
			TokenMetaTTL: time.Hour,
			PoolRefTTL:   time.Hour,
			PoolStateTTL: time.Minute,
		},
	}
}

func TestResolver_V2Pair(t *testing.T) {
	chain := &fakeChain{v2Pair: pairAddr}
	r, err := NewResolver(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	ref, err := r.Resolve(context.Background(), "mainnet", tokenA, tokenB, domain.VersionV2, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.PoolAddress != pairAddr {
		t.Fatalf("pool = %s; want %s", ref.PoolAddress.Hex(), pairAddr.Hex())
	}
	if ref.Token0 != tokenA || ref.Token1 != tokenB {
		t.Fatal("token ordering is not canonical")
	}
}

func TestResolver_MissingPairIsNotFound(t *testing.T) {
	chain := &fakeChain{} // factory answers the zero address
	r, err := NewResolver(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	_, err = r.Resolve(context.Background(), "mainnet", tokenA, tokenB, domain.VersionV2, 0)
	if apperror.GetCode(err) != apperror.CodePoolNotFound {
		t.Fatalf("code = %s; want POOL_NOT_FOUND", apperror.GetCode(err))
	}
}

func TestResolver_CodelessPoolIsNotFound(t *testing.T) {
	chain := &fakeChain{
		v2Pair:   pairAddr,
		codeless: map[common.Address]bool{pairAddr: true},
	}
	r, err := NewResolver(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	_, err = r.Resolve(context.Background(), "mainnet", tokenA, tokenB, domain.VersionV2, 0)
	if apperror.GetCode(err) != apperror.CodePoolNotFound {
		t.Fatalf("code = %s; want POOL_NOT_FOUND", apperror.GetCode(err))
	}
}

func TestResolver_UnknownNetwork(t *testing.T) {
	r, err := NewResolver(marketConfig(), &fakeChain{}, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	_, err = r.Resolve(context.Background(), "testnet", tokenA, tokenB, domain.VersionV2, 0)
	if apperror.GetCode(err) != apperror.CodeUnknownNetwork {
		t.Fatalf("code = %s; want UNKNOWN_NETWORK", apperror.GetCode(err))
	}
}

func TestResolver_NoStateViewMeansNoV4(t *testing.T) {
	cfg := marketConfig()
	net := cfg.Networks["mainnet"]
	net.V4StateView = ""
	cfg.Networks["mainnet"] = net

	r, err := NewResolver(cfg, &fakeChain{}, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	_, err = r.Resolve(context.Background(), "mainnet", tokenA, tokenB, domain.VersionV4, 3000)
	if apperror.GetCode(err) != apperror.CodePoolNotFound {
		t.Fatalf("code = %s; want POOL_NOT_FOUND", apperror.GetCode(err))
	}
}

func TestResolver_ResolveAllSkipsMissingTiers(t *testing.T) {
	chain := &fakeChain{
		v2Pair:    pairAddr,
		v3Pools:   map[int64]common.Address{3000: poolAddr},
		reserves:  domain.NewReserveState(big.NewInt(1000), big.NewInt(2000)),
		poolState: domain.NewLiquidityState(domain.VersionV3, big.NewInt(1), big.NewInt(1), 0),
	}
	r, err := NewResolver(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	refs, err := r.ResolveAll(context.Background(), "mainnet", tokenA, tokenB)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	// The V2 pair plus the single existing V3 tier; every V4 probe reads an
	// empty pool and is filtered out.
	if len(refs) != 2 {
		t.Fatalf("candidates = %d; want 2", len(refs))
	}
	versions := map[domain.Version]bool{}
	for _, ref := range refs {
		versions[ref.Version] = true
	}
	if !versions[domain.VersionV2] || !versions[domain.VersionV3] {
		t.Fatalf("versions = %v; want V2 and V3", versions)
	}
}

func TestResolver_FetchStateCaches(t *testing.T) {
	chain := &fakeChain{
		v2Pair:   pairAddr,
		reserves: domain.NewReserveState(big.NewInt(1000), big.NewInt(2000)),
	}
	r, err := NewResolver(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	ref, err := r.Resolve(context.Background(), "mainnet", tokenA, tokenB, domain.VersionV2, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := r.FetchState(context.Background(), ref); err != nil {
			t.Fatalf("FetchState %d: %v", i, err)
		}
	}
	if chain.stateReads != 1 {
		t.Fatalf("state reads = %d; want 1 (served from cache afterwards)", chain.stateReads)
	}
}

func TestResolver_EmptyPoolStateIsNotFound(t *testing.T) {
	chain := &fakeChain{
		v2Pair:   pairAddr,
		reserves: domain.NewReserveState(big.NewInt(0), big.NewInt(0)),
	}
	r, err := NewResolver(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	defer r.Close()

	ref, err := r.Resolve(context.Background(), "mainnet", tokenA, tokenB, domain.VersionV2, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err = r.FetchState(context.Background(), ref)
	if apperror.GetCode(err) != apperror.CodePoolNotFound {
		t.Fatalf("code = %s; want POOL_NOT_FOUND", apperror.GetCode(err))
	}
}

func TestTokenService_ChainReadCachedAfterFirstLookup(t *testing.T) {
	chain := &fakeChain{name: "Test Token", symbol: "TST", decimals: 18}
	s, err := NewTokenService(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		meta, err := s.Metadata(context.Background(), "mainnet", tokenA)
		if err != nil {
			t.Fatalf("Metadata %d: %v", i, err)
		}
		if meta.Symbol != "TST" || meta.Decimals != 18 {
			t.Fatalf("meta = %+v", meta)
		}
	}
	if chain.metaReads != 1 {
		t.Fatalf("chain reads = %d; want 1", chain.metaReads)
	}
}

func TestTokenService_WellKnownTokenSkipsChain(t *testing.T) {
	chain := &fakeChain{}
	s, err := NewTokenService(marketConfig(), chain, logger.Nop())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	defer s.Close()

	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	meta, err := s.Metadata(context.Background(), "mainnet", weth)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Symbol != "WETH" {
		t.Fatalf("symbol = %s; want WETH", meta.Symbol)
	}
	if chain.metaReads != 0 {
		t.Fatalf("chain reads = %d; want 0", chain.metaReads)
	}
}
