package bitcoin

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
	"github.com/goodnatureofminers/blockchain-tracker/pkg/safe"
)

// BtcToSatoshis converts a BTC amount to satoshis with overflow checks.
func BtcToSatoshis(value float64) (uint64, error) {
	amt, err := btcutil.NewAmount(value)
	if err != nil {
		return 0, err
	}
	if amt < 0 {
		return 0, fmt.Errorf("negative amount: %d", amt)
	}
	return safe.Uint64(int64(amt))
}

// BuildBlockFromVerbose maps a btcjson block result into a model.Block.
func BuildBlockFromVerbose(src btcjson.GetBlockVerboseTxResult) (model.Block, error) {
	height, err := safe.Uint64(src.Height)
	if err != nil {
		return model.Block{}, fmt.Errorf("block height %d overflow: %w", src.Height, err)
	}
	version, err := safe.Uint32(src.Version)
	if err != nil {
		return model.Block{}, fmt.Errorf("block %d version overflow: %w", src.Height, err)
	}
	size, err := safe.Uint32(src.Size)
	if err != nil {
		return model.Block{}, fmt.Errorf("block %d size overflow: %w", src.Height, err)
	}
	txCount, err := safe.Uint32(len(src.Tx))
	if err != nil {
		return model.Block{}, fmt.Errorf("block %d tx count overflow: %w", src.Height, err)
	}

	parentHash := src.PreviousHash
	if height == 0 && parentHash == "" {
		parentHash = model.GenesisParentHash
	}

	return model.Block{
		Height:     height,
		Hash:       src.Hash,
		ParentHash: parentHash,
		Timestamp:  time.Unix(src.Time, 0).UTC(),
		Version:    version,
		Size:       size,
		TXCount:    txCount,
	}, nil
}

// BuildTransactionFromRaw maps a btcjson transaction into a model.Transaction.
func BuildTransactionFromRaw(tx btcjson.TxRawResult, blockHeight uint64, blockTime time.Time) (model.Transaction, error) {
	size, err := safe.Uint32(tx.Size)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("tx %s size overflow: %w", tx.Txid, err)
	}
	version, err := safe.Uint32(tx.Version)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("tx %s version overflow: %w", tx.Txid, err)
	}

	outputs := make([]model.TransactionOutput, 0, len(tx.Vout))
	for idx, vout := range tx.Vout {
		if vout.Value < 0 {
			return model.Transaction{}, fmt.Errorf("tx %s output %d negative value: %f", tx.Txid, idx, vout.Value)
		}
		index, err := safe.Uint32(idx)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("tx %s output index overflow: %w", tx.Txid, err)
		}
		value, err := BtcToSatoshis(vout.Value)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("tx %s output %d safe value: %w", tx.Txid, idx, err)
		}
		outputs = append(outputs, model.TransactionOutput{
			Index:     index,
			Value:     value,
			Addresses: decodeAddresses(vout),
		})
	}

	return model.Transaction{
		TxID:        tx.Txid,
		BlockHeight: blockHeight,
		Timestamp:   blockTime,
		Size:        size,
		Version:     version,
		LockTime:    tx.LockTime,
		Outputs:     outputs,
	}, nil
}

func decodeAddresses(vout btcjson.Vout) []string {
	if len(vout.ScriptPubKey.Addresses) > 0 {
		return append([]string(nil), vout.ScriptPubKey.Addresses...)
	}
	if vout.ScriptPubKey.Address != "" {
		return []string{vout.ScriptPubKey.Address}
	}
	return nil
}
