package engine

import (
	"github.com/chrisfishbob/Talia/internal/board"
)

// Ordering scores, highest tried first.
const (
	ttMoveScore     = 10_000_000
	captureBase     = 1_000_000
	promotionBase   = 900_000
	killerScore1    = 800_000
	killerScore2    = 700_000
	historyMaxScore = 400_000
)

// mvvLva[victim][attacker]: most valuable victim first, least valuable
// attacker breaking ties. board.PieceValue gives the king a large value
// so it sorts behind every other attacker.
var mvvLva [6][6]int

func init() {
	for victim := board.Pawn; victim <= board.King; victim++ {
		for attacker := board.Pawn; attacker <= board.King; attacker++ {
			mvvLva[victim][attacker] = board.PieceValue[victim]*10 - board.PieceValue[attacker]/10
		}
	}
}

// MoveOrderer holds the per-search ordering state: two killer moves per
// ply and a from-to history table per side.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move
	history [2][64][64]int
}

func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and history for a fresh search.
func (mo *MoveOrderer) Clear() {
	*mo = MoveOrderer{}
}

// ScoreMoves fills scores for each move in ml: the table move first,
// then captures by MVV-LVA, promotions, killers, and finally quiet
// moves by history.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, ml *board.MoveList, ttMove board.Move, ply int, scores []int) {
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		switch {
		case m == ttMove:
			scores[i] = ttMoveScore
		case m.IsCapture(pos):
			victim := pos.PieceAt(m.To()).Type()
			if m.IsEnPassant() {
				victim = board.Pawn
			}
			attacker := pos.PieceAt(m.From()).Type()
			scores[i] = captureBase + mvvLva[victim][attacker]
		case m.IsPromotion():
			scores[i] = promotionBase + pieceValues[m.Promotion()]
		case m == mo.killers[ply][0]:
			scores[i] = killerScore1
		case m == mo.killers[ply][1]:
			scores[i] = killerScore2
		default:
			scores[i] = mo.history[pos.SideToMove][m.From()][m.To()]
		}
	}
}

// PickMove selects the highest-scored move at or after index start,
// swaps it into place, and returns it. One selection-sort step per
// call, so a beta cutoff never pays for sorting the remainder.
func PickMove(ml *board.MoveList, scores []int, start int) board.Move {
	best := start
	for i := start + 1; i < ml.Len(); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	ml.Swap(start, best)
	scores[start], scores[best] = scores[best], scores[start]
	return ml.Get(start)
}

// UpdateKillers records a quiet move that caused a beta cutoff.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if mo.killers[ply][0] != m {
		mo.killers[ply][1] = mo.killers[ply][0]
		mo.killers[ply][0] = m
	}
}

// UpdateHistory rewards a quiet cutoff move with a depth-squared bonus,
// clamped so history never outranks killers.
func (mo *MoveOrderer) UpdateHistory(side board.Color, m board.Move, depth int) {
	h := &mo.history[side][m.From()][m.To()]
	*h += depth * depth
	if *h > historyMaxScore {
		*h = historyMaxScore
	}
}
