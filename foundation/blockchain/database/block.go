package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/signature"
	"github.com/checoin/checoin/foundation/validate"
)

// Block represents a group of transactions batched together.
// The transactions are checked when they are applied to the set of unspent
// outputs, not as part of the block structure.
type Block struct {
	Index         uint64 `json:"index"`                                                              // Height of the block in the chain.
	Hash          string `json:"hash" validate:"required,len=64,hexstring"`                          // Hash of the block content.
	PreviousHash  string `json:"previousHash" validate:"omitempty,len=64,hexstring"`                 // Hash of the previous block in the chain.
	Timestamp     int64  `json:"timestamp"`                                                          // Unix seconds the block was minted.
	Data          []Tx   `json:"data" validate:"required,min=1"`                                     // Coinbase first, then the regular transactions.
	Difficulty    uint64 `json:"difficulty"`                                                         // Staking difficulty the block was minted with.
	MinterBalance uint64 `json:"minterBalance"`                                                      // Stake the minter held when minting.
	MinterAddress string `json:"minterAddress" validate:"omitempty,len=130,hexstring,startswith=04"` // Address of the minter.
}

// CalculateHash returns the hash for the block content.
func CalculateHash(b Block) string {
	var s strings.Builder
	s.WriteString(strconv.FormatUint(b.Index, 10))
	s.WriteString(b.PreviousHash)
	s.WriteString(strconv.FormatInt(b.Timestamp, 10))
	writeData(&s, b.Data)
	s.WriteString(strconv.FormatUint(b.Difficulty, 10))
	s.WriteString(strconv.FormatUint(b.MinterBalance, 10))
	s.WriteString(b.MinterAddress)

	return signature.Hash(s.String())
}

// Copy returns a deep copy of the block.
func (b Block) Copy() Block {
	cpy := b
	cpy.Data = make([]Tx, len(b.Data))
	for i, tx := range b.Data {
		cpy.Data[i] = tx.Copy()
	}

	return cpy
}

// Equal reports whether both blocks carry the same content and hash.
func (b Block) Equal(other Block) bool {
	return b.Hash == other.Hash && CalculateHash(b) == CalculateHash(other)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	hash := b.Hash
	if len(hash) > 16 {
		hash = hash[:16]
	}
	return fmt.Sprintf("%d:%s", b.Index, hash)
}

// =============================================================================

// founderAddress receives the coinbase of the genesis block.
const founderAddress = "04412ffaffb78f2931e193f1add952fcb84ceaa55c8491b3a71f25f89fbb482aaf9b74f0fc0d3b6a71da07425d3ef94ac0a1b1d7972f10c2c38bd77257b346fbf8"

// GenesisBlock returns the fixed first block of the chain. The values are
// constants shared by every node and are never recalculated.
func GenesisBlock() Block {
	return Block{
		Index:        0,
		Hash:         "2719af28e1db5714159a708f5b1c6f58e8933cf405a81b62fdbe62b2defd7500",
		PreviousHash: "",
		Timestamp:    1650108241,
		Data: []Tx{
			{
				ID: "e48909987deaa5263c8701b60692257cc509976e474d30505c335ff14ebf4f21",
				TxIns: []TxIn{
					{TxOutID: "", TxOutIndex: 0, Signature: ""},
				},
				TxOuts: []TxOut{
					{Address: founderAddress, Amount: 50},
				},
			},
		},
		Difficulty:    0,
		MinterBalance: 0,
		MinterAddress: "",
	}
}

// =============================================================================

// ValidateArgs provides the chain information a block is validated against.
type ValidateArgs struct {
	PrevBlock  Block           // Block the candidate must extend.
	Difficulty uint64          // Difficulty the chain expects for the candidate.
	UTXOs      UTXOSet         // Unspent outputs after the previous block.
	Genesis    genesis.Genesis // Consensus parameters.
	Now        int64           // Current unix time in seconds.
	EvHandler  func(v string, args ...any)
}

// ValidateBlock takes a block and validates it to be the next block in the
// chain. On success it returns the set of unspent outputs that results from
// replaying the block transactions.
func (b Block) ValidateBlock(args ValidateArgs) (UTXOSet, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block structure", b.Index)

	if err := validate.Check(b); err != nil {
		return UTXOSet{}, fmt.Errorf("%w: blk[%s]: %w", ErrStructural, b, err)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block index is the next index", b.Index)

	nextIndex := args.PrevBlock.Index + 1
	if b.Index != nextIndex {
		return UTXOSet{}, fmt.Errorf("%w: this block is not the next index, got %d, exp %d", ErrLinkage, b.Index, nextIndex)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: previous hash does match previous block", b.Index)

	if b.PreviousHash != args.PrevBlock.Hash {
		return UTXOSet{}, fmt.Errorf("%w: previous block hash doesn't match our known previous, got %s, exp %s", ErrLinkage, b.PreviousHash, args.PrevBlock.Hash)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash matches the content", b.Index)

	if hash := CalculateHash(b); hash != b.Hash {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: got %s, calculated %s", ErrHashMismatch, b.Index, b.Hash, hash)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: timestamp is within tolerance", b.Index)

	tolerance := args.Genesis.TimestampTolerance
	if b.Timestamp <= args.PrevBlock.Timestamp-tolerance {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: timestamp %d is too far before previous block %d", ErrStructural, b.Index, b.Timestamp, args.PrevBlock.Timestamp)
	}
	if b.Timestamp-tolerance >= args.Now {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: timestamp %d is in the future, now %d", ErrStructural, b.Index, b.Timestamp, args.Now)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: difficulty matches the chain", b.Index)

	if b.Difficulty != args.Difficulty {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: got %d, exp %d", ErrDifficulty, b.Index, b.Difficulty, args.Difficulty)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: minter stake", b.Index)

	if b.MinterAddress == "" {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: missing minter address", ErrInvalidAddress, b.Index)
	}

	if balance := args.UTXOs.Balance(b.MinterAddress); b.MinterBalance > balance {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: minter claims balance %d, holds %d", ErrStake, b.Index, b.MinterBalance, balance)
	}

	if !IsStakingValid(b.PreviousHash, b.MinterAddress, b.Timestamp, b.MinterBalance, b.Difficulty, b.Index, args.Genesis) {
		return UTXOSet{}, fmt.Errorf("%w: blk[%d]: staking hash is above the threshold", ErrStake, b.Index)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: transactions", b.Index)

	utxos, err := args.UTXOs.Apply(b.Data, b.Index, args.Genesis)
	if err != nil {
		return UTXOSet{}, err
	}

	return utxos, nil
}

// =============================================================================

// writeData writes the full content of the transactions, signatures
// included, into the block hash content.
func writeData(s *strings.Builder, txs []Tx) {
	for _, tx := range txs {
		s.WriteString(tx.ID)
		for _, in := range tx.TxIns {
			s.WriteString(in.TxOutID)
			s.WriteString(strconv.FormatUint(in.TxOutIndex, 10))
			s.WriteString(in.Signature)
		}
		for _, out := range tx.TxOuts {
			s.WriteString(out.Address)
			s.WriteString(strconv.FormatUint(out.Amount, 10))
		}
	}
}
