package board

import "lukechampine.com/frand"

// Zobrist keys. The generator is keyed with a fixed value so hashes
// stay stable across runs, which keeps persisted probe caches valid.
var (
	zobristPiece      [2][6][64]uint64
	zobristEnPassant  [8]uint64 // one key per file
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

func init() {
	key := make([]byte, 32)
	copy(key, "talia zobrist v1")
	rng := frand.NewCustom(key, 1024, 12)

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.Uint64n(1<<63) + 1
			}
		}
	}
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.Uint64n(1<<63) + 1
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.Uint64n(1<<63) + 1
	}
	zobristSideToMove = rng.Uint64n(1<<63) + 1
}
