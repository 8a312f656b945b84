package payout

import (
	"math"
	"math/bits"
)

const (
	// DustLimit is the smallest output value relayed by default policy.
	DustLimit uint64 = 546

	// DefaultFeeRate is the fee rate in satoshis per kilobyte.
	DefaultFeeRate uint64 = 1
)

// EstimateFee returns ceil(txSizeBytes * feeRate / 1000). A zero feeRate
// uses DefaultFeeRate. The result saturates at math.MaxUint64.
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	hi, fee := bits.Mul64(uint64(txSizeBytes), feeRate)
	if hi != 0 || fee > math.MaxUint64-999 {
		return math.MaxUint64
	}
	return (fee + 999) / 1000
}

// EstimateTxSize estimates the size of a transaction spending numInputs
// P2PKH inputs into numOutputs P2PKH outputs.
func EstimateTxSize(numInputs, numOutputs int) int {
	// version(4) + locktime(4) + input count(1) + output count(1)
	base := 10
	// prevhash(32) + index(4) + script len(1) + sig/pubkey(~107) + sequence(4)
	inputs := numInputs * 148
	// value(8) + script len(1) + P2PKH script(25)
	outputs := numOutputs * 34
	return base + inputs + outputs
}
