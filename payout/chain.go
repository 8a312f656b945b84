package payout

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/bits"
	"sort"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/bitfsorg/constitution-go/account"
	"github.com/bitfsorg/constitution-go/network"
)

// MaxPayoutSats is the largest amount a single payout may carry: the 21M
// coin supply in satoshis.
const MaxPayoutSats uint64 = 21_000_000 * 100_000_000

// ChainSink settles requests with P2PKH transactions funded from a treasury
// key. Amounts are interpreted as satoshis.
type ChainSink struct {
	chain    network.BlockchainService
	key      *ec.PrivateKey
	treasury account.ID
	lock     *script.Script
	feeRate  uint64

	mu    sync.Mutex
	spent map[string]struct{} // outpoints consumed by broadcasts from this process
}

// Compile-time interface check.
var _ Sink = (*ChainSink)(nil)

// NewChainSink returns a sink paying from the P2PKH address of key.
// A zero feeRate uses DefaultFeeRate.
func NewChainSink(chain network.BlockchainService, key *ec.PrivateKey, mainnet bool, feeRate uint64) (*ChainSink, error) {
	if chain == nil {
		return nil, fmt.Errorf("%w: blockchain service", ErrNilParam)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: treasury key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(key.PubKey(), mainnet)
	if err != nil {
		return nil, fmt.Errorf("%w: treasury address: %w", ErrScriptBuild, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: treasury lock script: %w", ErrScriptBuild, err)
	}
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return &ChainSink{
		chain:    chain,
		key:      key,
		treasury: account.ID(addr.AddressString),
		lock:     lock,
		feeRate:  feeRate,
		spent:    make(map[string]struct{}),
	}, nil
}

// Treasury returns the funding address.
func (s *ChainSink) Treasury() account.ID {
	return s.treasury
}

// Pay builds, signs and broadcasts a transaction paying req.Amount to req.To
// with change back to the treasury.
func (s *ChainSink) Pay(ctx context.Context, req Request) (string, error) {
	sats, ok := req.Amount.Uint64()
	if !ok || sats > MaxPayoutSats {
		return "", fmt.Errorf("%w: %s exceeds the %d sat supply", ErrUnpayable, req.Amount, MaxPayoutSats)
	}
	if sats < DustLimit {
		return "", fmt.Errorf("%w: %d sat is below dust limit %d", ErrUnpayable, sats, DustLimit)
	}
	payee, err := script.NewAddressFromString(req.To.String())
	if err != nil {
		return "", fmt.Errorf("%w: payee %q: %w", ErrScriptBuild, req.To, err)
	}
	payeeLock, err := p2pkh.Lock(payee)
	if err != nil {
		return "", fmt.Errorf("%w: payee lock script: %w", ErrScriptBuild, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	utxos, err := s.chain.ListUnspent(ctx, s.treasury.String())
	if err != nil {
		return "", fmt.Errorf("payout: list treasury outputs: %w", err)
	}
	inputs, fee, err := s.selectInputs(utxos, sats)
	if err != nil {
		return "", err
	}

	sdkTx := transaction.NewTransaction()
	var total uint64
	for _, u := range inputs {
		txidHash, err := txidFromHex(u.TxID)
		if err != nil {
			return "", err
		}
		unlocker, err := p2pkh.Unlock(s.key, nil)
		if err != nil {
			return "", fmt.Errorf("%w: create unlocker: %w", ErrSigningFailed, err)
		}
		sdkTx.AddInput(&transaction.TransactionInput{
			SourceTXID:              txidHash,
			SourceTxOutIndex:        u.Vout,
			SequenceNumber:          transaction.DefaultSequenceNumber,
			UnlockingScriptTemplate: unlocker,
		})
		sdkTx.Inputs[len(sdkTx.Inputs)-1].SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      u.Amount,
			LockingScript: s.lock,
		})
		total += u.Amount
	}

	sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{
		Satoshis:      sats,
		LockingScript: payeeLock,
	})
	if change := total - sats - fee; change > DustLimit {
		sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{
			Satoshis:      change,
			LockingScript: s.lock,
		})
	}

	if err := sdkTx.Sign(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	txid, err := s.chain.BroadcastTx(ctx, sdkTx.Hex())
	if err != nil {
		return "", fmt.Errorf("payout: broadcast: %w", err)
	}
	for _, u := range inputs {
		s.spent[outpoint(u)] = struct{}{}
	}
	return txid, nil
}

// selectInputs picks the largest unspent treasury outputs until they cover
// sats plus the fee of a two-output transaction.
func (s *ChainSink) selectInputs(utxos []*network.UTXO, sats uint64) ([]*network.UTXO, uint64, error) {
	candidates := make([]*network.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u == nil {
			continue
		}
		if _, used := s.spent[outpoint(u)]; used {
			continue
		}
		candidates = append(candidates, u)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Amount > candidates[j].Amount
	})

	var (
		selected  []*network.UTXO
		available uint64
	)
	for _, u := range candidates {
		sum, carry := bits.Add64(available, u.Amount, 0)
		if carry != 0 {
			return nil, 0, fmt.Errorf("%w: treasury outputs overflow uint64", network.ErrInvalidResponse)
		}
		selected = append(selected, u)
		available = sum
		fee := EstimateFee(EstimateTxSize(len(selected), 2), s.feeRate)
		need, carry := bits.Add64(sats, fee, 0)
		if carry != 0 {
			return nil, 0, fmt.Errorf("%w: %d sat plus %d sat fee overflows", ErrUnpayable, sats, fee)
		}
		if available >= need {
			return selected, fee, nil
		}
	}
	need, _ := bits.Add64(sats, EstimateFee(EstimateTxSize(len(selected)+1, 2), s.feeRate), 0)
	return nil, 0, fmt.Errorf("%w: need %d sat, have %d sat", ErrInsufficientFunds, need, available)
}

func outpoint(u *network.UTXO) string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Vout)
}

// txidFromHex converts a display-order txid into the internal byte order
// used by transaction inputs.
func txidFromHex(txid string) (*chainhash.Hash, error) {
	b, err := hex.DecodeString(txid)
	if err != nil || len(b) != chainhash.HashSize {
		return nil, fmt.Errorf("%w: invalid txid %q", ErrScriptBuild, txid)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return chainhash.NewHash(b)
}
