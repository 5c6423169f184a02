// Package transport exposes the read-only HTTP query facade.
package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

type (
	// ChainReader reads tracked chain state. Reads run concurrently with the
	// reconciler's writes; the store serializes them.
	ChainReader interface {
		Get(height uint64) (*model.BlockEntry, bool, error)
		GetByHash(hash string) (*model.BlockEntry, bool, error)
		TransactionByID(txid string) (*model.Transaction, *model.BlockEntry, bool, error)
		LoadCursor() (model.Cursor, bool, error)
		AddressTransactions(address string) ([]model.AddressTransaction, error)
	}

	// StatusProvider reports the reconciler's current state snapshot.
	StatusProvider interface {
		Status() model.TrackerStatus
	}
)

// TrackerHandler serves the tracker's query endpoints.
type TrackerHandler struct {
	logger *zap.Logger
	store  ChainReader
	status StatusProvider
}

// NewTrackerHandler returns a TrackerHandler instance.
func NewTrackerHandler(store ChainReader, status StatusProvider, logger *zap.Logger) *TrackerHandler {
	return &TrackerHandler{
		logger: logger.Named("http"),
		store:  store,
		status: status,
	}
}

type blockResponse struct {
	Height     uint64    `json:"height"`
	Hash       string    `json:"hash"`
	ParentHash string    `json:"parent_hash"`
	Timestamp  time.Time `json:"timestamp"`
	Version    uint32    `json:"version"`
	Size       uint32    `json:"size"`
	TXCount    uint32    `json:"tx_count"`
	Status     string    `json:"status"`
	Txids      []string  `json:"txids,omitempty"`
}

type outputResponse struct {
	Index     uint32   `json:"index"`
	Value     uint64   `json:"value"`
	Addresses []string `json:"addresses,omitempty"`
}

type transactionResponse struct {
	TxID        string           `json:"txid"`
	BlockHeight uint64           `json:"block_height"`
	BlockHash   string           `json:"block_hash"`
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Size        uint32           `json:"size"`
	Version     uint32           `json:"version"`
	LockTime    uint32           `json:"locktime"`
	Outputs     []outputResponse `json:"outputs,omitempty"`
}

func newBlockResponse(entry *model.BlockEntry) blockResponse {
	resp := blockResponse{
		Height:     entry.Block.Height,
		Hash:       entry.Block.Hash,
		ParentHash: entry.Block.ParentHash,
		Timestamp:  entry.Block.Timestamp,
		Version:    entry.Block.Version,
		Size:       entry.Block.Size,
		TXCount:    entry.Block.TXCount,
		Status:     string(entry.Status),
	}
	for _, tx := range entry.Txs {
		resp.Txids = append(resp.Txids, tx.TxID)
	}
	return resp
}

func newTransactionResponse(tx *model.Transaction, entry *model.BlockEntry) transactionResponse {
	resp := transactionResponse{
		TxID:        tx.TxID,
		BlockHeight: tx.BlockHeight,
		BlockHash:   entry.Block.Hash,
		Status:      string(entry.Status),
		Timestamp:   tx.Timestamp,
		Size:        tx.Size,
		Version:     tx.Version,
		LockTime:    tx.LockTime,
	}
	for _, out := range tx.Outputs {
		resp.Outputs = append(resp.Outputs, outputResponse{
			Index:     out.Index,
			Value:     out.Value,
			Addresses: out.Addresses,
		})
	}
	return resp
}

// Health reports server liveness.
func (h *TrackerHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status returns the reconciler's state snapshot.
func (h *TrackerHandler) Status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.status.Status())
}

// BlockByHeight returns the stored block at a height.
func (h *TrackerHandler) BlockByHeight(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid height")
		return
	}

	entry, found, err := h.store.Get(height)
	if err != nil {
		h.logger.Error("get block failed", zap.Uint64("height", height), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "block not found")
		return
	}
	h.writeJSON(w, http.StatusOK, newBlockResponse(entry))
}

// BlockByHash returns the stored block with a hash.
func (h *TrackerHandler) BlockByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	entry, found, err := h.store.GetByHash(hash)
	if err != nil {
		h.logger.Error("get block by hash failed", zap.String("hash", hash), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "block not found")
		return
	}
	h.writeJSON(w, http.StatusOK, newBlockResponse(entry))
}

// TransactionByID returns a stored transaction and its block context.
func (h *TrackerHandler) TransactionByID(w http.ResponseWriter, r *http.Request) {
	txid := mux.Vars(r)["txid"]

	tx, entry, found, err := h.store.TransactionByID(txid)
	if err != nil {
		h.logger.Error("get transaction failed", zap.String("txid", txid), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	h.writeJSON(w, http.StatusOK, newTransactionResponse(tx, entry))
}

// Cursor returns the durable confirmed-tip bookmark.
func (h *TrackerHandler) Cursor(w http.ResponseWriter, _ *http.Request) {
	cursor, found, err := h.store.LoadCursor()
	if err != nil {
		h.logger.Error("load cursor failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "no blocks confirmed yet")
		return
	}
	h.writeJSON(w, http.StatusOK, cursor)
}

// AddressTransactions returns recorded confirmed payments to a watched address.
func (h *TrackerHandler) AddressTransactions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	matches, err := h.store.AddressTransactions(address)
	if err != nil {
		h.logger.Error("list address transactions failed", zap.String("address", address), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if matches == nil {
		matches = []model.AddressTransaction{}
	}
	h.writeJSON(w, http.StatusOK, matches)
}

func (h *TrackerHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response failed", zap.Error(err))
	}
}

func (h *TrackerHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
