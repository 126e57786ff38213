package engine

import (
	"sync/atomic"
	"time"

	"github.com/chrisfishbob/Talia/internal/board"
)

const (
	// Infinity bounds the alpha-beta window.
	Infinity = 30000
	// MateScore is the value of delivering checkmate at the root; a
	// mate found at ply n scores MateScore - n, so shorter mates rank
	// higher.
	MateScore = 29000
	// MaxPly caps the search stack depth.
	MaxPly = 128
	// DrawScore is returned for stalemate, repetition, the fifty-move
	// rule and dead positions.
	DrawScore = 0
)

// PVTable is a triangular principal-variation table: row ply holds the
// best line found from that ply.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

func (pv *PVTable) Reset(ply int) {
	pv.length[ply] = ply
}

// Update records m as the best move at ply and pulls up the line found
// below it.
func (pv *PVTable) Update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for i := ply + 1; i < pv.length[ply+1]; i++ {
		pv.moves[ply][i] = pv.moves[ply+1][i]
	}
	pv.length[ply] = pv.length[ply+1]
}

// Line returns the principal variation from the root.
func (pv *PVTable) Line() []board.Move {
	line := make([]board.Move, pv.length[0])
	copy(line, pv.moves[0][:pv.length[0]])
	return line
}

// searcher runs one search over a single position. It is not shared
// between goroutines; the stop flag is the only external input.
type searcher struct {
	pos     *board.Position
	tt      *TranspositionTable
	orderer *MoveOrderer
	pv      PVTable

	// history holds the zobrist hashes of every position from the game
	// start through the current node, for repetition detection.
	history []uint64

	nodes    uint64
	seldepth int

	deadline  time.Time
	nodeCap   uint64
	stop      *atomic.Bool
	stopped   bool
	allowStop bool
}

// checkBudget polls the stop flag, the node cap and the deadline every
// 4096 nodes. It never fires before allowStop is set, which the
// iterative-deepening driver does only after the first iteration
// completes, so even an expired budget yields a legal move.
func (s *searcher) checkBudget() {
	if !s.allowStop || s.stopped || s.nodes&4095 != 0 {
		return
	}
	if s.stop != nil && s.stop.Load() {
		s.stopped = true
		return
	}
	if s.nodeCap > 0 && s.nodes >= s.nodeCap {
		s.stopped = true
		return
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.stopped = true
	}
}

// isRepetition reports whether the current position occurred earlier in
// the game or search line. A single prior occurrence counts: inside the
// tree a twofold repetition already proves neither side can make
// progress.
func (s *searcher) isRepetition() bool {
	n := len(s.history)
	limit := n - 1 - s.pos.HalfMoveClock
	if limit < 0 {
		limit = 0
	}
	for i := n - 3; i >= limit; i -= 2 {
		if s.history[i] == s.pos.Hash {
			return true
		}
	}
	return false
}

// negamax is a fail-soft alpha-beta search. There is no speculative
// pruning: given enough depth and an untouched budget, the root score
// equals the plain minimax value of the tree.
func (s *searcher) negamax(depth, ply, alpha, beta int) int {
	if s.stopped {
		return 0
	}
	s.nodes++
	s.checkBudget()

	s.pv.Reset(ply)

	if ply > 0 {
		if s.pos.HalfMoveClock >= 100 || s.isRepetition() || s.pos.IsInsufficientMaterial() {
			return DrawScore
		}
	}
	if ply >= MaxPly {
		return Evaluate(s.pos)
	}
	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	alphaOrig := alpha
	ttMove := board.NoMove
	if entry, ok := s.tt.Probe(s.pos.Hash); ok {
		ttMove = entry.BestMove
		// Only entries searched to exactly this depth may cut: a
		// deeper entry would substitute a different horizon's value.
		if ply > 0 && int(entry.Depth) == depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLower:
				if score > alpha {
					alpha = score
				}
			case TTUpper:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if s.pos.InCheck() {
			return -MateScore + ply
		}
		return DrawScore
	}

	var scores [256]int
	s.orderer.ScoreMoves(s.pos, moves, ttMove, ply, scores[:])

	best := -Infinity
	bestMove := board.NoMove
	for i := 0; i < moves.Len(); i++ {
		m := PickMove(moves, scores[:], i)

		undo := s.pos.MakeMove(m)
		s.history = append(s.history, s.pos.Hash)
		score := -s.negamax(depth-1, ply+1, -beta, -alpha)
		s.history = s.history[:len(s.history)-1]
		s.pos.UnmakeMove(m, undo)

		if s.stopped {
			return 0
		}

		if score > best {
			best = score
			bestMove = m
			if score > alpha {
				alpha = score
				s.pv.Update(ply, m)
			}
		}
		if alpha >= beta {
			if !m.IsCapture(s.pos) && !m.IsPromotion() {
				s.orderer.UpdateKillers(m, ply)
				s.orderer.UpdateHistory(s.pos.SideToMove, m, depth)
			}
			break
		}
	}

	flag := TTExact
	if best <= alphaOrig {
		flag = TTUpper
	} else if best >= beta {
		flag = TTLower
	}
	s.tt.Store(s.pos.Hash, bestMove, AdjustScoreToTT(best, ply), depth, flag)

	return best
}

// quiescence resolves captures and promotions until the position is
// quiet, so the horizon never lands in the middle of an exchange.
func (s *searcher) quiescence(ply, alpha, beta int) int {
	if s.stopped {
		return 0
	}
	s.nodes++
	s.checkBudget()

	s.pv.Reset(ply)

	if ply > s.seldepth {
		s.seldepth = ply
	}

	stand := Evaluate(s.pos)
	if ply >= MaxPly {
		return stand
	}
	if stand >= beta {
		return stand
	}
	if stand > alpha {
		alpha = stand
	}

	moves := s.pos.GenerateCaptures()
	var scores [256]int
	s.orderer.ScoreMoves(s.pos, moves, board.NoMove, ply, scores[:])

	best := stand
	for i := 0; i < moves.Len(); i++ {
		m := PickMove(moves, scores[:], i)

		undo := s.pos.MakeMove(m)
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.pos.UnmakeMove(m, undo)

		if s.stopped {
			return 0
		}

		if score > best {
			best = score
			if score > alpha {
				alpha = score
			}
		}
		if alpha >= beta {
			break
		}
	}
	return best
}
