package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckmate(t *testing.T) {
	// Back rank mate: the g7/h7 pawns box in the h8 king.
	pos, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	require.True(t, pos.InCheck())
	require.True(t, pos.IsCheckmate())
	require.False(t, pos.IsStalemate())
}

func TestNotCheckmateWhenRookHangs(t *testing.T) {
	// Same rook check, but without the pawns the king just takes it.
	pos, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	require.True(t, pos.InCheck())
	require.False(t, pos.IsCheckmate())
}

func TestStalemate(t *testing.T) {
	// Black king on a8, cornered but not attacked.
	pos, err := ParseFEN("k7/8/1Q6/8/8/8/8/4K3 b - - 0 1")
	require.NoError(t, err)

	require.False(t, pos.InCheck())
	require.True(t, pos.IsStalemate())
	require.True(t, pos.IsDraw())
}

func TestInsufficientMaterial(t *testing.T) {
	cases := []struct {
		fen  string
		dead bool
	}{
		{"8/8/4k3/8/8/3K4/8/8 w - - 0 1", true},     // K vs K
		{"8/8/4k3/8/8/3KB3/8/8 w - - 0 1", true},    // KB vs K
		{"8/8/4k3/8/8/3KN3/8/8 w - - 0 1", true},    // KN vs K
		{"8/8/4k3/8/8/3KP3/8/8 w - - 0 1", false},   // pawn can promote
		{"8/8/4k3/8/8/3KR3/8/8 w - - 0 1", false},   // rook mates
		{"8/8/2n1k3/8/8/3KN3/8/8 w - - 0 1", false}, // minors both sides
	}
	for _, tc := range cases {
		pos, err := ParseFEN(tc.fen)
		require.NoError(t, err, tc.fen)
		require.Equal(t, tc.dead, pos.IsInsufficientMaterial(), tc.fen)
	}
}
