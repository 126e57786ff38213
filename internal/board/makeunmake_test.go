package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// walkAndRestore plays every legal move to the given depth, checking
// after each unmake that the position compares equal to the original
// value and that the incremental hash matches a from-scratch
// recomputation after each make.
func walkAndRestore(t *testing.T, p *Position, depth int) {
	t.Helper()
	if depth == 0 {
		return
	}
	moves := p.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		before := *p

		undo := p.MakeMove(m)
		require.Equal(t, p.ComputeHash(), p.Hash,
			"incremental hash diverged after %v from %s", m, before.ToFEN())
		require.NoError(t, p.Validate(), "after %v from %s", m, before.ToFEN())

		walkAndRestore(t, p, depth-1)

		p.UnmakeMove(m, undo)
		require.True(t, *p == before,
			"unmake of %v did not restore %s", m, before.ToFEN())
	}
}

func TestMakeUnmakeRestoresExactly(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"8/P3k3/8/8/8/8/4K3/8 w - - 0 1",    // promotions
		"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", // en passant
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		require.NoError(t, err, fen)
		walkAndRestore(t, pos, 3)
	}
}

func TestCastlingRightsClearing(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	// Moving the h1 rook drops only white's kingside right.
	m, err := pos.ParseUCIMove("h1g1")
	require.NoError(t, err)
	undo := pos.MakeMove(m)
	require.Equal(t, WhiteQueenSideCastle|BlackKingSideCastle|BlackQueenSideCastle, pos.CastlingRights)
	pos.UnmakeMove(m, undo)

	// Moving the king drops both of white's rights.
	m, err = pos.ParseUCIMove("e1d1")
	require.NoError(t, err)
	undo = pos.MakeMove(m)
	require.Equal(t, BlackKingSideCastle|BlackQueenSideCastle, pos.CastlingRights)
	pos.UnmakeMove(m, undo)

	// Capturing the a8 rook drops black's queenside right.
	m, err = pos.ParseUCIMove("a1a8")
	require.NoError(t, err)
	pos.MakeMove(m)
	require.Equal(t, WhiteKingSideCastle|BlackKingSideCastle, pos.CastlingRights)
}

func TestCastlingMovesBothPieces(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	m, err := pos.ParseUCIMove("e1g1")
	require.NoError(t, err)
	pos.MakeMove(m)

	require.Equal(t, WhiteKing, pos.PieceAt(G1))
	require.Equal(t, WhiteRook, pos.PieceAt(F1))
	require.True(t, pos.IsEmpty(E1))
	require.True(t, pos.IsEmpty(H1))
}

func TestDoublePushSetsEnPassant(t *testing.T) {
	pos := NewPosition()
	m, err := pos.ParseUCIMove("e2e4")
	require.NoError(t, err)
	pos.MakeMove(m)
	require.Equal(t, E3, pos.EnPassant)

	// A quiet reply clears it again.
	m, err = pos.ParseUCIMove("g8f6")
	require.NoError(t, err)
	pos.MakeMove(m)
	require.Equal(t, NoSquare, pos.EnPassant)
}
