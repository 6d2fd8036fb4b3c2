package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is a node-issued state marker that can later be used to revert
// chain state to the point of capture. The token is opaque and supplied by
// the node itself.
type Snapshot struct {
	Token       string      `json:"token"`
	Name        string      `json:"name,omitempty"`
	NodeID      string      `json:"nodeId"`
	BlockNumber uint64      `json:"blockNumber"`
	BlockHash   common.Hash `json:"blockHash"`
	BlockTime   uint64      `json:"blockTime"`
	CreatedAt   time.Time   `json:"createdAt"`
	// Consumed is set after a successful revert. Most nodes invalidate a
	// token after first use, so reverting a consumed token again carries a
	// warning rather than an error.
	Consumed bool `json:"consumed"`
}

// Clone returns a copy of the snapshot record.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	return &c
}

// RevertOutcome is the result of reverting to a snapshot.
type RevertOutcome struct {
	Snapshot    *Snapshot `json:"snapshot"`
	BlockNumber uint64    `json:"blockNumber"`
	// Warning is non-empty when the revert proceeded against an
	// already-consumed token and the node may have rejected it silently.
	Warning string `json:"warning,omitempty"`
}

// BlockInfo is the chain position captured alongside a snapshot.
type BlockInfo struct {
	Number    uint64      `json:"number"`
	Hash      common.Hash `json:"hash"`
	Timestamp uint64      `json:"timestamp"`
}
