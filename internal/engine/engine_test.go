package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/chrisfishbob/Talia/internal/board"
	"github.com/chrisfishbob/Talia/internal/tablebase"
)

func mustParse(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func TestSearchFindsMateInOne(t *testing.T) {
	pos := mustParse(t, "6k1/5ppp/8/8/8/8/8/4R2K w - - 0 1")
	eng := NewEngine(16)

	result := eng.Search(pos, Limits{Depth: 3})
	require.Equal(t, "e1e8", result.BestMove.String())
	require.Equal(t, MateScore-1, result.Score)
	require.Equal(t, "mate 1", ScoreToString(result.Score))
}

func TestSearchFindsMateInTwo(t *testing.T) {
	pos := mustParse(t, "k6r/2p2ppp/4P3/4P3/8/1r6/4KP1P/2q5 b - - 0 1")
	eng := NewEngine(16)

	result := eng.Search(pos, Limits{Depth: 5})
	require.True(t, IsMateScore(result.Score))
	require.Positive(t, result.Score)
	require.NotEqual(t, board.NoMove, result.BestMove)
}

func TestSearchTakesHangingQueen(t *testing.T) {
	pos := mustParse(t, "k7/8/8/3q4/8/8/3R4/K7 w - - 0 1")
	eng := NewEngine(16)

	result := eng.Search(pos, Limits{Depth: 4})
	require.Equal(t, "d2d5", result.BestMove.String())
}

func TestSearchPromotes(t *testing.T) {
	pos := mustParse(t, "8/P3k3/8/8/8/8/4K3/8 w - - 0 1")
	eng := NewEngine(16)

	result := eng.Search(pos, Limits{Depth: 4})
	require.Equal(t, "a7a8q", result.BestMove.String())
}

func TestSearchZeroBudgetStillMoves(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(1)

	result := eng.Search(pos, Limits{MoveTime: time.Nanosecond})
	require.NotEqual(t, board.NoMove, result.BestMove)
	require.True(t, pos.GenerateLegalMoves().Contains(result.BestMove))
	require.GreaterOrEqual(t, result.Depth, 1)
}

func TestSearchDoesNotMutatePosition(t *testing.T) {
	pos := mustParse(t, "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4")
	before := *pos

	eng := NewEngine(16)
	eng.Search(pos, Limits{Depth: 4})
	require.Equal(t, before, *pos)
}

func TestSearchStalemateAtRoot(t *testing.T) {
	pos := mustParse(t, "k7/8/1Q6/8/8/8/8/4K3 b - - 0 1")
	eng := NewEngine(1)

	result := eng.Search(pos, Limits{Depth: 3})
	require.Equal(t, board.NoMove, result.BestMove)
	require.Equal(t, DrawScore, result.Score)
}

func TestStopReturnsCompletedIteration(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)

	done := make(chan Result, 1)
	go func() {
		done <- eng.Search(pos, Limits{Infinite: true})
	}()

	time.Sleep(100 * time.Millisecond)
	eng.Stop()

	select {
	case result := <-done:
		require.NotEqual(t, board.NoMove, result.BestMove)
		require.GreaterOrEqual(t, result.Depth, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}
}

// fullMinimax is an unpruned reference search sharing the same
// evaluation and quiescence. Alpha-beta must agree with it exactly.
func fullMinimax(s *searcher, depth, ply int) int {
	if depth == 0 {
		return s.quiescence(ply, -Infinity, Infinity)
	}
	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if s.pos.InCheck() {
			return -MateScore + ply
		}
		return DrawScore
	}
	best := -Infinity
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := s.pos.MakeMove(m)
		score := -fullMinimax(s, depth-1, ply+1)
		s.pos.UnmakeMove(m, undo)
		if score > best {
			best = score
		}
	}
	return best
}

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	}
	for _, fen := range fens {
		pos := mustParse(t, fen)

		s := &searcher{pos: pos.Copy(), tt: NewTranspositionTable(4), orderer: NewMoveOrderer()}
		s.history = append(s.history, pos.Hash)
		got := s.negamax(3, 0, -Infinity, Infinity)

		ref := &searcher{pos: pos.Copy(), tt: NewTranspositionTable(1), orderer: NewMoveOrderer()}
		want := fullMinimax(ref, 3, 0)

		require.Equal(t, want, got, "fen %s", fen)
	}
}

// mirrorFEN flips a position vertically and swaps the colors, which
// must negate nothing: the evaluation is symmetric, so both sides of
// the mirror score identically for their side to move.
func mirrorFEN(fen string) string {
	fields := strings.Fields(fen)

	ranks := strings.Split(fields[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	placement := strings.Join(ranks, "/")
	placement = swapCase(placement)

	side := "w"
	if fields[1] == "w" {
		side = "b"
	}

	castling := fields[2]
	if castling != "-" {
		castling = swapCase(castling)
	}

	ep := fields[3]
	if ep != "-" {
		rank := byte('3' + '6' - ep[1])
		ep = string(ep[0]) + string(rank)
	}

	return placement + " " + side + " " + castling + " " + ep + " " + fields[4] + " " + fields[5]
}

func swapCase(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TestEvaluateMirrorSymmetry(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/R3K3 b - - 10 40",
	}
	for _, fen := range fens {
		pos := mustParse(t, fen)
		mirrored := mustParse(t, mirrorFEN(fen))
		require.Equal(t, Evaluate(pos), Evaluate(mirrored), "fen %s", fen)
	}
}

func TestEvaluateStartingPositionBalanced(t *testing.T) {
	require.Equal(t, 0, Evaluate(board.NewPosition()))
}

func TestEvaluateMaterialEdge(t *testing.T) {
	// White is a rook up; the score must favor the side to move
	// accordingly from both perspectives.
	white := mustParse(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	black := mustParse(t, "4k3/8/8/8/8/8/8/R3K3 b - - 0 1")
	require.Positive(t, Evaluate(white))
	require.Negative(t, Evaluate(black))
	require.Equal(t, Evaluate(white), -Evaluate(black))
}

func TestSearchIsDeterministic(t *testing.T) {
	fen := "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"

	first := NewEngine(8).Search(mustParse(t, fen), Limits{Depth: 4})
	second := NewEngine(8).Search(mustParse(t, fen), Limits{Depth: 4})

	require.Equal(t, first.Score, second.Score)
	if diff := cmp.Diff(first.PV, second.PV); diff != "" {
		t.Errorf("principal variation differs between identical searches (-first +second):\n%s", diff)
	}
}

func TestPrincipalVariationIsPlayable(t *testing.T) {
	pos := mustParse(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	result := NewEngine(8).Search(pos, Limits{Depth: 4})
	require.NotEmpty(t, result.PV)

	walk := pos.Copy()
	for _, m := range result.PV {
		require.True(t, walk.GenerateLegalMoves().Contains(m), "pv move %s not legal", m)
		walk.MakeMove(m)
	}
}

func TestEnginePerft(t *testing.T) {
	eng := NewEngine(1)
	require.Equal(t, uint64(8902), eng.Perft(board.NewPosition(), 3))
}

func TestScoreToString(t *testing.T) {
	require.Equal(t, "cp 42", ScoreToString(42))
	require.Equal(t, "cp -180", ScoreToString(-180))
	require.Equal(t, "mate 1", ScoreToString(MateScore-1))
	require.Equal(t, "mate 3", ScoreToString(MateScore-5))
	require.Equal(t, "mate -2", ScoreToString(-MateScore+4))
}

func TestTranspositionTableRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewMove(board.E2, board.E4)

	tt.Store(0xDEADBEEF, m, 55, 6, TTExact)

	entry, ok := tt.Probe(0xDEADBEEF)
	require.True(t, ok)
	require.Equal(t, m, entry.BestMove)
	require.Equal(t, int16(55), entry.Score)
	require.Equal(t, int8(6), entry.Depth)
	require.Equal(t, TTExact, entry.Flag)

	_, ok = tt.Probe(0xCAFEBABE)
	require.False(t, ok)

	tt.Clear()
	_, ok = tt.Probe(0xDEADBEEF)
	require.False(t, ok)
}

func TestMateScoreTTAdjustment(t *testing.T) {
	// Storing converts root-relative mates to node-relative, probing
	// converts back; the round trip is the identity at any ply.
	require.Equal(t, MateScore-3, AdjustScoreToTT(MateScore-7, 4))
	require.Equal(t, -MateScore+3, AdjustScoreToTT(-MateScore+7, 4))

	for _, score := range []int{MateScore - 7, -MateScore + 7, 123, -321, 0} {
		for _, ply := range []int{0, 2, 6} {
			require.Equal(t, score, AdjustScoreFromTT(AdjustScoreToTT(score, ply), ply))
		}
	}

	// Regular scores pass through untouched.
	require.Equal(t, 123, AdjustScoreToTT(123, 9))
	require.Equal(t, -321, AdjustScoreFromTT(-321, 9))
}

func TestMoveOrdering(t *testing.T) {
	pos := mustParse(t, "4k3/8/2n5/3p4/4P3/8/8/4K2R w K - 0 1")
	moves := pos.GenerateLegalMoves()

	ttMove := board.NewMove(board.H1, board.H8)
	require.True(t, moves.Contains(ttMove))

	mo := NewMoveOrderer()
	var scores [256]int
	mo.ScoreMoves(pos, moves, ttMove, 0, scores[:])

	first := PickMove(moves, scores[:], 0)
	require.Equal(t, ttMove, first)

	second := PickMove(moves, scores[:], 1)
	require.Equal(t, "e4d5", second.String(), "capture should follow the table move")
}

func TestKillersAndHistory(t *testing.T) {
	mo := NewMoveOrderer()
	m1 := board.NewMove(board.B1, board.C3)
	m2 := board.NewMove(board.G1, board.F3)

	mo.UpdateKillers(m1, 3)
	mo.UpdateKillers(m2, 3)
	require.Equal(t, m2, mo.killers[3][0])
	require.Equal(t, m1, mo.killers[3][1])

	for i := 0; i < 10_000; i++ {
		mo.UpdateHistory(board.White, m1, 20)
	}
	require.Equal(t, historyMaxScore, mo.history[board.White][m1.From()][m1.To()])
}

// scriptedProber returns a fixed verdict for any probe.
type scriptedProber struct {
	result tablebase.ProbeResult
	calls  int
}

func (sp *scriptedProber) Probe(context.Context, *board.Position) (tablebase.ProbeResult, error) {
	sp.calls++
	return sp.result, nil
}

func TestSearchUsesTablebaseAtRoot(t *testing.T) {
	pos := mustParse(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	bestMove, err := pos.ParseUCIMove("a1a8")
	require.NoError(t, err)

	prober := &scriptedProber{result: tablebase.ProbeResult{
		Found:    true,
		WDL:      tablebase.WDLWin,
		DTZ:      15,
		BestMove: bestMove,
	}}

	eng := NewEngine(1)
	eng.SetProber(prober)

	result := eng.Search(pos, Limits{Depth: 6})
	require.True(t, result.FromTB)
	require.Equal(t, bestMove, result.BestMove)
	require.Equal(t, tablebase.WDLToScore(tablebase.WDLWin), result.Score)
	require.Equal(t, 1, prober.calls)
}

func TestSearchSkipsTablebaseWhenInapplicable(t *testing.T) {
	prober := &scriptedProber{result: tablebase.ProbeResult{Found: true}}

	eng := NewEngine(1)
	eng.SetProber(prober)

	result := eng.Search(board.NewPosition(), Limits{Depth: 2})
	require.False(t, result.FromTB)
	require.Equal(t, 0, prober.calls)
	require.NotEqual(t, board.NoMove, result.BestMove)
}

func TestRepetitionDetection(t *testing.T) {
	pos := board.NewPosition()
	s := &searcher{pos: pos, tt: NewTranspositionTable(1), orderer: NewMoveOrderer()}
	s.history = append(s.history, pos.Hash)

	play := func(uci string) {
		m, err := pos.ParseUCIMove(uci)
		require.NoError(t, err)
		pos.MakeMove(m)
		s.history = append(s.history, pos.Hash)
	}

	play("g1f3")
	require.False(t, s.isRepetition())
	play("g8f6")
	require.False(t, s.isRepetition())
	play("f3g1")
	require.False(t, s.isRepetition())
	play("f6g8")
	require.True(t, s.isRepetition(), "knights returned home, position repeats")
}
