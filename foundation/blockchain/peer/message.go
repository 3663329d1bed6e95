package peer

import (
	"encoding/json"
	"fmt"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/validate"
)

// MessageType identifies the shape of the message payload.
type MessageType int

// Set of messages exchanged between nodes.
const (
	QueryLatest             MessageType = 0
	QueryAll                MessageType = 1
	ResponseBlockchain      MessageType = 2
	QueryTransactionPool    MessageType = 3
	ResponseTransactionPool MessageType = 4
)

// String implements the fmt.Stringer interface for logging.
func (mt MessageType) String() string {
	switch mt {
	case QueryLatest:
		return "QUERY_LATEST"
	case QueryAll:
		return "QUERY_ALL"
	case ResponseBlockchain:
		return "RESPONSE_BLOCKCHAIN"
	case QueryTransactionPool:
		return "QUERY_TRANSACTION_POOL"
	case ResponseTransactionPool:
		return "RESPONSE_TRANSACTION_POOL"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(mt))
}

// Message is the envelope for everything sent between nodes. The data
// carries a list of blocks or a list of transactions depending on the type.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewQuery constructs a message with no payload.
func NewQuery(mt MessageType) Message {
	return Message{Type: mt}
}

// NewBlocksResponse constructs a message carrying the list of blocks.
func NewBlocksResponse(blocks []database.Block) (Message, error) {
	data, err := json.Marshal(blocks)
	if err != nil {
		return Message{}, fmt.Errorf("encoding blocks: %w", err)
	}

	return Message{Type: ResponseBlockchain, Data: data}, nil
}

// NewTxsResponse constructs a message carrying the list of transactions.
func NewTxsResponse(txs []database.Tx) (Message, error) {
	if txs == nil {
		txs = []database.Tx{}
	}

	data, err := json.Marshal(txs)
	if err != nil {
		return Message{}, fmt.Errorf("encoding transactions: %w", err)
	}

	return Message{Type: ResponseTransactionPool, Data: data}, nil
}

// Blocks decodes the payload into a list of blocks. Every block must have
// a well formed structure.
func (m Message) Blocks() ([]database.Block, error) {
	if m.Type != ResponseBlockchain {
		return nil, fmt.Errorf("%w: message %s does not carry blocks", database.ErrStructural, m.Type)
	}

	var blocks []database.Block
	if err := json.Unmarshal(m.Data, &blocks); err != nil {
		return nil, fmt.Errorf("%w: decoding blocks: %w", database.ErrStructural, err)
	}

	for _, block := range blocks {
		if err := validate.Check(block); err != nil {
			return nil, fmt.Errorf("%w: blk[%s]: %w", database.ErrStructural, block, err)
		}
	}

	return blocks, nil
}

// Txs decodes the payload into a list of transactions. Every transaction
// must have a well formed structure.
func (m Message) Txs() ([]database.Tx, error) {
	if m.Type != ResponseTransactionPool {
		return nil, fmt.Errorf("%w: message %s does not carry transactions", database.ErrStructural, m.Type)
	}

	var txs []database.Tx
	if err := json.Unmarshal(m.Data, &txs); err != nil {
		return nil, fmt.Errorf("%w: decoding transactions: %w", database.ErrStructural, err)
	}

	for _, tx := range txs {
		if err := database.ValidateTxStructure(tx); err != nil {
			return nil, err
		}
	}

	return txs, nil
}
