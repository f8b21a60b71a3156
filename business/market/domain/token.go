package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexquote/swap-quoter/internal/apperror"
)

// maxDecimals bounds ERC-20 decimals; uint8 on-chain caps at 255 but
// anything past 77 overflows a 256-bit scaling factor.
const maxDecimals = 77

// TokenMeta describes one ERC-20 token on one network. Fetched once and
// cached long-term; the on-chain values are effectively immutable.
type TokenMeta struct {
	Network  string
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8
}

// NewTokenMeta validates and builds token metadata. The stored address is
// the EIP-55 checksummed form.
func NewTokenMeta(network string, address common.Address, name, symbol string, decimals int64) (*TokenMeta, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, apperror.New(apperror.CodeTokenMetadataFailed,
			apperror.WithContext(fmt.Sprintf("decimals %d out of range for %s", decimals, address.Hex())))
	}
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	return &TokenMeta{
		Network:  network,
		Address:  address,
		Name:     name,
		Symbol:   symbol,
		Decimals: uint8(decimals),
	}, nil
}

// ChecksummedAddress returns the EIP-55 mixed-case form.
func (t *TokenMeta) ChecksummedAddress() string {
	return t.Address.Hex()
}
