package domain

import (
	"math/big"
	"time"
)

// GasPrice is a fetched gas price snapshot.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: wei, Timestamp: time.Now()}
}

// Gwei returns the price in gwei for logging and metrics.
func (g *GasPrice) Gwei() float64 {
	f := new(big.Float).SetInt(g.Wei)
	f.Quo(f, big.NewFloat(1e9))
	out, _ := f.Float64()
	return out
}

// GasEstimate pairs a gas limit with the price used to cost it.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	Fallback bool
}

// NewGasEstimate computes the total gas cost for a limit at a price.
func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{GasLimit: gasLimit, GasPrice: price}
}

// TotalWei returns limit multiplied by price.
func (e *GasEstimate) TotalWei() *big.Int {
	return new(big.Int).Mul(e.GasPrice.Wei, new(big.Int).SetUint64(e.GasLimit))
}
