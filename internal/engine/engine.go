// Package engine implements the search: iterative-deepening alpha-beta
// with quiescence, a transposition table, and a static material plus
// piece-square evaluation.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chrisfishbob/Talia/internal/board"
	"github.com/chrisfishbob/Talia/internal/tablebase"
)

// Limits bound a search. Zero values mean unbounded; a search with no
// limits at all still terminates at MaxPly.
type Limits struct {
	Depth    int           // maximum iteration depth
	MoveTime time.Duration // wall-clock budget
	Nodes    uint64        // node budget
	Infinite bool          // ignore MoveTime, run until Stop
}

// Result describes the outcome of a search: the best move of the last
// fully completed iteration and the statistics accumulated so far.
type Result struct {
	BestMove board.Move
	Score    int
	Depth    int
	SelDepth int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
	FromTB   bool
}

// Engine ties the searcher to its transposition table and optional
// tablebase prober. One Engine serves one game at a time; Search and
// Stop may be called from different goroutines.
type Engine struct {
	tt      *TranspositionTable
	prober  tablebase.Prober
	history []uint64
	stop    atomic.Bool

	// OnInfo, when set, is called after every completed iteration.
	OnInfo func(Result)
}

// NewEngine creates an engine with a transposition table of ttSizeMB
// megabytes.
func NewEngine(ttSizeMB int) *Engine {
	return &Engine{tt: NewTranspositionTable(ttSizeMB)}
}

// SetProber installs a tablebase prober consulted at the root of every
// search for positions with few enough pieces.
func (e *Engine) SetProber(p tablebase.Prober) {
	e.prober = p
}

// SetHistory provides the zobrist hashes of the positions played before
// the search root, so repetitions across the game boundary are seen.
func (e *Engine) SetHistory(hashes []uint64) {
	e.history = append(e.history[:0], hashes...)
}

// Stop aborts a running search. The search still returns the best move
// of its last completed iteration.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Clear wipes the transposition table and game history, for a new game.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.history = e.history[:0]
}

// Resize replaces the transposition table with one of sizeMB
// megabytes. Never call while a search is running.
func (e *Engine) Resize(sizeMB int) {
	e.tt = NewTranspositionTable(sizeMB)
}

// HashFull reports transposition-table occupancy in permille.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Search runs an iterative-deepening search within limits and returns
// the best move found. The depth-1 iteration always completes, so even
// a zero or expired budget yields a legal move when one exists. The
// position is searched on a copy and is never mutated.
func (e *Engine) Search(pos *board.Position, limits Limits) Result {
	start := time.Now()
	e.stop.Store(false)

	if r, ok := e.probeRoot(pos, limits); ok {
		r.Elapsed = time.Since(start)
		return r
	}

	// One below MaxPly so the deepest iteration still fits the
	// table's int8 depth field.
	maxDepth := limits.Depth
	if maxDepth <= 0 || maxDepth >= MaxPly {
		maxDepth = MaxPly - 1
	}
	var deadline time.Time
	if limits.MoveTime > 0 && !limits.Infinite {
		deadline = start.Add(limits.MoveTime)
	}

	e.tt.NewSearch()
	s := &searcher{
		pos:      pos.Copy(),
		tt:       e.tt,
		orderer:  NewMoveOrderer(),
		deadline: deadline,
		nodeCap:  limits.Nodes,
		stop:     &e.stop,
	}
	s.history = append(s.history, e.history...)
	s.history = append(s.history, pos.Hash)

	var result Result
	for depth := 1; depth <= maxDepth; depth++ {
		score := s.negamax(depth, 0, -Infinity, Infinity)
		if s.stopped {
			break
		}

		pv := s.pv.Line()
		result = Result{
			Score:    score,
			Depth:    depth,
			SelDepth: s.seldepth,
			Nodes:    s.nodes,
			Elapsed:  time.Since(start),
			PV:       pv,
		}
		if len(pv) > 0 {
			result.BestMove = pv[0]
		}

		log.Debug().
			Int("depth", depth).
			Int("score", score).
			Uint64("nodes", s.nodes).
			Str("pv", MovesToString(pv)).
			Dur("elapsed", result.Elapsed).
			Msg("iteration complete")

		if e.OnInfo != nil {
			e.OnInfo(result)
		}

		// The first completed iteration guarantees a move; only then
		// may the budget cut a search short.
		s.allowStop = true

		if IsMateScore(score) {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if limits.Nodes > 0 && s.nodes >= limits.Nodes {
			break
		}
	}
	return result
}

// probeRoot consults the tablebase when the position qualifies. Probe
// failures fall through to the regular search.
func (e *Engine) probeRoot(pos *board.Position, limits Limits) (Result, bool) {
	if e.prober == nil || !tablebase.Applicable(pos) {
		return Result{}, false
	}

	timeout := 3 * time.Second
	if limits.MoveTime > 0 && limits.MoveTime < timeout {
		timeout = limits.MoveTime
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := e.prober.Probe(ctx, pos)
	if err != nil {
		log.Warn().Err(err).Msg("tablebase probe failed, searching instead")
		return Result{}, false
	}
	if !res.Found || res.BestMove == board.NoMove {
		return Result{}, false
	}

	log.Debug().
		Int("wdl", int(res.WDL)).
		Int("dtz", res.DTZ).
		Str("move", res.BestMove.String()).
		Msg("tablebase hit")

	return Result{
		BestMove: res.BestMove,
		Score:    tablebase.WDLToScore(res.WDL),
		Depth:    0,
		PV:       []board.Move{res.BestMove},
		FromTB:   true,
	}, true
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return Perft(pos, depth)
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func Perft(pos *board.Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score >= MateScore-MaxPly || score <= -MateScore+MaxPly
}

// ScoreToString renders a score the way UCI expects: "cp N" for
// centipawns, "mate N" for forced mates (negative when being mated).
func ScoreToString(score int) string {
	if score >= MateScore-MaxPly {
		return fmt.Sprintf("mate %d", (MateScore-score+1)/2)
	}
	if score <= -MateScore+MaxPly {
		return fmt.Sprintf("mate %d", -(MateScore+score+1)/2)
	}
	return fmt.Sprintf("cp %d", score)
}

// MovesToString joins moves in coordinate notation.
func MovesToString(moves []board.Move) string {
	s := ""
	for i, m := range moves {
		if i > 0 {
			s += " "
		}
		s += m.String()
	}
	return s
}
