package pricing

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var weiPerEth = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// EURToETH converts a euro amount at a fixed ETH price.
func EURToETH(amountEUR, ethPriceEUR float64) float64 {
	if ethPriceEUR <= 0 {
		return 0
	}
	return amountEUR / ethPriceEUR
}

// ETHToWei converts ether to wei, truncating below one wei.
func ETHToWei(eth float64) (*big.Int, error) {
	if eth < 0 {
		return nil, fmt.Errorf("negative amount %v", eth)
	}
	f, ok := new(big.Float).SetPrec(256).SetString(strconv.FormatFloat(eth, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("parse amount %v", eth)
	}
	wei, _ := f.Mul(f, weiPerEth).Int(nil)
	return wei, nil
}

// WeiToETH converts wei to ether.
func WeiToETH(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth).Float64()
	return eth
}

// WeiHex encodes an ether amount as the 0x-prefixed wei quantity wallets expect.
func WeiHex(eth float64) (string, error) {
	wei, err := ETHToWei(eth)
	if err != nil {
		return "", err
	}
	return hexutil.EncodeBig(wei), nil
}
