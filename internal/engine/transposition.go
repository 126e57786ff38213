package engine

import (
	"sync"

	"github.com/chrisfishbob/Talia/internal/board"
)

// TTFlag classifies the score stored in a table entry.
type TTFlag uint8

const (
	TTExact TTFlag = iota // score is the exact value of the node
	TTLower               // score failed high, a lower bound
	TTUpper               // score failed low, an upper bound
)

// TTEntry is one transposition-table slot.
type TTEntry struct {
	Key      uint64
	BestMove board.Move
	Score    int16
	Depth    int8
	Flag     TTFlag
	Age      uint8
}

const ttShards = 256

type ttShard struct {
	mu      sync.RWMutex
	entries []TTEntry
}

// TranspositionTable caches search results keyed by zobrist hash. It is
// sharded so probes and stores from a search and a concurrent Clear do
// not serialize on one lock.
type TranspositionTable struct {
	shards    [ttShards]ttShard
	shardMask uint64
	slotMask  uint64
	age       uint8
}

// NewTranspositionTable allocates a table of roughly sizeMB megabytes,
// rounded down to a power-of-two entry count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	entrySize := 16 // conservative per-entry footprint
	total := roundDownToPowerOfTwo(sizeMB * 1024 * 1024 / entrySize)
	if total < ttShards {
		total = ttShards
	}
	perShard := total / ttShards

	tt := &TranspositionTable{
		shardMask: ttShards - 1,
		slotMask:  uint64(perShard - 1),
	}
	for i := range tt.shards {
		tt.shards[i].entries = make([]TTEntry, perShard)
	}
	return tt
}

func roundDownToPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// Probe looks up the entry for key. The boolean reports whether a
// stored entry with a matching full key was found.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	shard := &tt.shards[key&tt.shardMask]
	shard.mu.RLock()
	entry := shard.entries[(key>>8)&tt.slotMask]
	shard.mu.RUnlock()

	if entry.Key != key {
		return TTEntry{}, false
	}
	return entry, true
}

// Store writes an entry, preferring to keep deeper results from the
// current search over shallow ones; anything from an older search is
// always replaced.
func (tt *TranspositionTable) Store(key uint64, bestMove board.Move, score, depth int, flag TTFlag) {
	shard := &tt.shards[key&tt.shardMask]
	idx := (key >> 8) & tt.slotMask

	shard.mu.Lock()
	existing := &shard.entries[idx]
	if existing.Key == key && existing.Age == tt.age && int(existing.Depth) > depth && flag != TTExact {
		shard.mu.Unlock()
		return
	}
	*existing = TTEntry{
		Key:      key,
		BestMove: bestMove,
		Score:    int16(score),
		Depth:    int8(depth),
		Flag:     flag,
		Age:      tt.age,
	}
	shard.mu.Unlock()
}

// NewSearch bumps the table age so entries from previous searches lose
// their replacement priority without being cleared.
func (tt *TranspositionTable) NewSearch() {
	tt.age++
}

// Clear wipes every entry.
func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		shard := &tt.shards[i]
		shard.mu.Lock()
		for j := range shard.entries {
			shard.entries[j] = TTEntry{}
		}
		shard.mu.Unlock()
	}
	tt.age = 0
}

// HashFull estimates table occupancy in permille from a thousand-slot
// sample, the figure UCI "info hashfull" reports.
func (tt *TranspositionTable) HashFull() int {
	used := 0
	sampled := 0
	for i := 0; i < ttShards && sampled < 1000; i++ {
		shard := &tt.shards[i]
		shard.mu.RLock()
		for j := 0; j < len(shard.entries) && sampled < 1000; j++ {
			if shard.entries[j].Key != 0 {
				used++
			}
			sampled++
		}
		shard.mu.RUnlock()
	}
	if sampled == 0 {
		return 0
	}
	return used * 1000 / sampled
}

// AdjustScoreToTT converts a mate score from root-relative to
// node-relative before storing, so a mate found via different paths
// shares one entry.
func AdjustScoreToTT(score, ply int) int {
	if score >= MateScore-MaxPly {
		return score + ply
	}
	if score <= -MateScore+MaxPly {
		return score - ply
	}
	return score
}

// AdjustScoreFromTT is the inverse conversion applied after a probe.
func AdjustScoreFromTT(score, ply int) int {
	if score >= MateScore-MaxPly {
		return score - ply
	}
	if score <= -MateScore+MaxPly {
		return score + ply
	}
	return score
}
