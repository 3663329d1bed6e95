package database

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/checoin/checoin/foundation/blockchain/genesis"
	"github.com/checoin/checoin/foundation/blockchain/signature"
)

// maxHash is 2^256, one above the largest value a staking hash can take.
var maxHash = new(big.Int).Lsh(big.NewInt(1), 256)

// POSArgs represents the set of arguments required to mint a block.
type POSArgs struct {
	MinterAddress string
	MinterBalance uint64
	Difficulty    uint64
	PrevBlock     Block
	Data          []Tx
	Genesis       genesis.Genesis
	Clock         func() time.Time
	EvHandler     func(v string, args ...any)
}

// POS constructs a new Block and performs the search for a timestamp that
// solves the staking puzzle for the minter. The clock is sampled at most once
// per distinct second and the search runs until a solution is found or the
// context is cancelled.
func POS(ctx context.Context, args POSArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	clock := args.Clock
	if clock == nil {
		clock = time.Now
	}

	index := args.PrevBlock.Index + 1

	ev("database: POS: MINTING: started: blk[%d]: difficulty[%d]: balance[%d]", index, args.Difficulty, args.MinterBalance)
	defer ev("database: POS: MINTING: completed: blk[%d]", index)

	for _, tx := range args.Data {
		ev("database: POS: MINTING: tx[%s]", tx)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	var attempts int
	lastTried := int64(-1)
	for {
		if ctx.Err() != nil {
			ev("database: POS: MINTING: CANCELLED: attempts[%d]", attempts)
			return Block{}, ctx.Err()
		}

		now := clock()
		timestamp := now.Unix()

		if timestamp != lastTried {
			lastTried = timestamp
			attempts++

			if IsStakingValid(args.PrevBlock.Hash, args.MinterAddress, timestamp, args.MinterBalance, args.Difficulty, index, args.Genesis) {
				nb := Block{
					Index:         index,
					PreviousHash:  args.PrevBlock.Hash,
					Timestamp:     timestamp,
					Data:          args.Data,
					Difficulty:    args.Difficulty,
					MinterBalance: args.MinterBalance,
					MinterAddress: args.MinterAddress,
				}
				nb.Hash = CalculateHash(nb)

				ev("database: POS: MINTING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", args.PrevBlock, nb, attempts)
				return nb, nil
			}

			if attempts%60 == 0 {
				ev("database: POS: MINTING: attempts[%d]", attempts)
			}
		}

		// Wait for the start of the next second before sampling again.
		timer.Reset(time.Unix(timestamp+1, 0).Sub(now))
		select {
		case <-ctx.Done():
			ev("database: POS: MINTING: CANCELLED: attempts[%d]", attempts)
			return Block{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsStakingValid reports whether the staking hash for the minter at the
// specified timestamp is at or below the threshold set by the balance and
// the difficulty. Below the bootstrap height every minter gets one extra
// coin of stake so a chain can start without any coins in circulation.
func IsStakingValid(prevHash string, address string, timestamp int64, balance uint64, difficulty uint64, index uint64, g genesis.Genesis) bool {
	effBalance := new(big.Int).SetUint64(balance)
	if index < g.MintingWithoutCoinIndex {
		effBalance.Add(effBalance, big.NewInt(1))
	}

	effDifficulty := new(big.Int).SetUint64(difficulty)
	effDifficulty.Add(effDifficulty, big.NewInt(1))

	threshold := new(big.Int).Mul(maxHash, effBalance)
	threshold.Div(threshold, effDifficulty)

	stake, ok := new(big.Int).SetString(StakingHash(prevHash, address, timestamp), 16)
	if !ok {
		return false
	}

	return stake.Cmp(threshold) <= 0
}

// StakingHash returns the hash a minter compares against the threshold.
func StakingHash(prevHash string, address string, timestamp int64) string {
	return signature.Hash(prevHash + address + strconv.FormatInt(timestamp, 10))
}
