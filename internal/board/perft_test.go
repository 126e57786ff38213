package board

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// perft counts leaf nodes of the legal move tree, the standard
// correctness check for move generation.
func perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return int64(moves.Len())
	}
	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

func TestPerftStartingPosition(t *testing.T) {
	pos := NewPosition()
	expected := []int64{20, 400, 8902, 197281}
	// Depth 5 is 4865609; skipped to keep the suite fast.
	for i, want := range expected {
		depth := i + 1
		t.Run(fmt.Sprintf("depth%d", depth), func(t *testing.T) {
			require.Equal(t, want, perft(pos, depth))
		})
	}
}

// Kiwipete exercises castling, pins, promotions and en passant at once.
func TestPerftKiwipete(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")
	require.NoError(t, err)

	expected := []int64{48, 2039, 97862}
	for i, want := range expected {
		depth := i + 1
		t.Run(fmt.Sprintf("depth%d", depth), func(t *testing.T) {
			require.Equal(t, want, perft(pos, depth))
		})
	}
}

// Position 3 from the CPW perft suite, heavy on en passant edge cases.
func TestPerftEnPassantSuite(t *testing.T) {
	pos, err := ParseFEN("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -")
	require.NoError(t, err)

	expected := []int64{14, 191, 2812, 43238}
	for i, want := range expected {
		depth := i + 1
		t.Run(fmt.Sprintf("depth%d", depth), func(t *testing.T) {
			require.Equal(t, want, perft(pos, depth))
		})
	}
}

// The en passant capture d3 would clear both pawns off the fourth rank
// and expose the a4 king to the h4 rook, so it must not be generated.
func TestPerftEnPassantHorizontalPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	require.NoError(t, err)

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		require.False(t, moves.Get(i).IsEnPassant(),
			"en passant %v should be illegal here", moves.Get(i))
	}

	require.Equal(t, int64(6), perft(pos, 1))
	require.Equal(t, int64(94), perft(pos, 2))
}
