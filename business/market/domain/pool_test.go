package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewPoolRef_CanonicalOrdering(t *testing.T) {
	low := common.HexToAddress("0x1111111111111111111111111111111111111111")
	high := common.HexToAddress("0x2222222222222222222222222222222222222222")

	forward := NewPoolRef("mainnet", VersionV3, common.Address{}, low, high, 3000)
	reversed := NewPoolRef("mainnet", VersionV3, common.Address{}, high, low, 3000)

	if forward.Token0 != low || forward.Token1 != high {
		t.Fatalf("forward ordering = %s/%s; want low/high", forward.Token0.Hex(), forward.Token1.Hex())
	}
	if reversed != forward {
		t.Fatal("argument order changed the resolved ref")
	}
}

func TestTickSpacingForFee(t *testing.T) {
	tests := []struct {
		feeTier int64
		want    int64
	}{
		{100, 1},
		{500, 10},
		{3000, 60},
		{10000, 200},
		{1234, 0},
	}
	for _, tt := range tests {
		if got := TickSpacingForFee(tt.feeTier); got != tt.want {
			t.Errorf("TickSpacingForFee(%d) = %d; want %d", tt.feeTier, got, tt.want)
		}
	}
}

func TestPoolRef_ZeroForOne(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")
	ref := NewPoolRef("mainnet", VersionV2, common.Address{}, b, a, 30)

	if !ref.ZeroForOne(a) {
		t.Fatal("selling token0 should be zero-for-one")
	}
	if ref.ZeroForOne(b) {
		t.Fatal("selling token1 should not be zero-for-one")
	}
}

func TestPoolRef_Identity(t *testing.T) {
	pool := common.HexToAddress("0xAbCd000000000000000000000000000000000000")
	ref := NewPoolRef("mainnet", VersionV2, pool, common.Address{}, pool, 30)
	if ref.Identity() != "0xabcd000000000000000000000000000000000000" {
		t.Fatalf("identity = %s; want lowercase pool address", ref.Identity())
	}

	v4 := ref
	v4.Version = VersionV4
	v4.PoolID = common.HexToHash("0xFF00000000000000000000000000000000000000000000000000000000000001")
	if v4.Identity() != "0xff00000000000000000000000000000000000000000000000000000000000001" {
		t.Fatalf("v4 identity = %s; want lowercase pool id", v4.Identity())
	}
}

func TestPoolState_Empty(t *testing.T) {
	tests := []struct {
		name  string
		state *PoolState
		want  bool
	}{
		{"funded reserves", NewReserveState(big.NewInt(1000), big.NewInt(2000)), false},
		{"zero reserve0", NewReserveState(big.NewInt(0), big.NewInt(2000)), true},
		{"nil reserves", &PoolState{Version: VersionV2}, true},
		{"funded liquidity", NewLiquidityState(VersionV3, big.NewInt(1), big.NewInt(1), 0), false},
		{"zero liquidity", NewLiquidityState(VersionV3, big.NewInt(0), big.NewInt(1), 0), true},
		{"zero sqrt price", NewLiquidityState(VersionV4, big.NewInt(1), big.NewInt(0), 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Empty(); got != tt.want {
				t.Fatalf("Empty() = %v; want %v", got, tt.want)
			}
		})
	}
}
