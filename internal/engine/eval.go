package engine

import (
	"github.com/chrisfishbob/Talia/internal/board"
)

// Piece values in centipawns, indexed by board.PieceType.
var pieceValues = [6]int{100, 320, 330, 500, 900, 0}

// Piece-square tables, written from Black's point of view so the first
// row is rank 8. White pieces index with the mirrored square.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// Evaluate returns a static score in centipawns from the perspective of
// the side to move. It sums material and piece-square bonuses; the king
// table switches from midgame to endgame by material phase.
func Evaluate(pos *board.Position) int {
	endgame := isEndgame(pos)

	score := 0
	for c := board.White; c <= board.Black; c++ {
		side := 0
		for pt := board.Pawn; pt <= board.Queen; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				if c == board.White {
					sq = sq.Mirror()
				}
				side += pieceValues[pt] + psts[pt][sq]
			}
		}

		ksq := pos.KingSquare[c]
		if c == board.White {
			ksq = ksq.Mirror()
		}
		if endgame {
			side += kingEndgamePST[ksq]
		} else {
			side += kingMidgamePST[ksq]
		}

		if c == board.White {
			score += side
		} else {
			score -= side
		}
	}

	if pos.SideToMove == board.Black {
		score = -score
	}
	return score
}

// isEndgame follows the simplified-evaluation rule: the endgame starts
// once both sides either have no queen, or have a queen accompanied by
// at most one minor piece and nothing heavier.
func isEndgame(pos *board.Position) bool {
	for c := board.White; c <= board.Black; c++ {
		queens := pos.Pieces[c][board.Queen].PopCount()
		if queens == 0 {
			continue
		}
		rooks := pos.Pieces[c][board.Rook].PopCount()
		minors := pos.Pieces[c][board.Knight].PopCount() + pos.Pieces[c][board.Bishop].PopCount()
		if queens > 1 || rooks > 0 || minors > 1 {
			return false
		}
	}
	return true
}
