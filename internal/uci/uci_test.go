package uci

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrisfishbob/Talia/internal/engine"
)

func runScript(t *testing.T, script string) string {
	t.Helper()
	var out bytes.Buffer
	u := NewWithIO(engine.NewEngine(16), strings.NewReader(script), &out)
	u.Run()
	return out.String()
}

func TestHandshake(t *testing.T) {
	out := runScript(t, "uci\nisready\nquit\n")
	require.Contains(t, out, "id name Talia")
	require.Contains(t, out, "uciok")
	require.Contains(t, out, "readyok")
}

func TestGoProducesBestMove(t *testing.T) {
	out := runScript(t, "position startpos moves e2e4 e7e5\ngo depth 3\nquit\n")
	require.Contains(t, out, "bestmove ")
	require.Contains(t, out, "info depth 1")
	require.Contains(t, out, " pv ")
}

func TestGoMateInOne(t *testing.T) {
	out := runScript(t, "position fen 6k1/5ppp/8/8/8/8/8/4R2K w - - 0 1\ngo depth 3\nquit\n")
	require.Contains(t, out, "score mate 1")
	require.Contains(t, out, "bestmove e1e8")
}

func TestStalematePosition(t *testing.T) {
	out := runScript(t, "position fen k7/8/1Q6/8/8/8/8/4K3 b - - 0 1\ngo depth 2\nquit\n")
	require.Contains(t, out, "bestmove 0000")
}

// A bare king facing a queen can only hope for a draw. The shuffle in
// the move list brings the game back to its starting position, so
// repeating it once more is a draw the search must find — which only
// works if the positions played before the root reach the engine.
func TestRepetitionAcrossGameHistoryScoredAsDraw(t *testing.T) {
	out := runScript(t,
		"position fen k7/8/8/8/1q6/8/8/7K w - - 0 1 moves h1g1 b4a4 g1h1 a4b4\ngo depth 3\nquit\n")
	require.Contains(t, out, "score cp 0")
	require.Contains(t, out, "bestmove h1g1")
}

func TestPerftCommand(t *testing.T) {
	out := runScript(t, "position startpos\nperft 3\nquit\n")
	require.Contains(t, out, "nodes 8902")
}

func TestInvalidMoveRejected(t *testing.T) {
	out := runScript(t, "position startpos moves e2e5\nd\nquit\n")
	require.Contains(t, out, "illegal move e2e5")
}

func TestInvalidFENRejected(t *testing.T) {
	out := runScript(t, "position fen banana\nquit\n")
	require.Contains(t, out, "invalid fen")
}

func TestParseGoOptions(t *testing.T) {
	opts := parseGoOptions(strings.Fields("depth 6 wtime 60000 btime 55000 winc 1000 binc 1000 movestogo 20"))
	require.Equal(t, 6, opts.Depth)
	require.Equal(t, int64(60000), opts.WTime.Milliseconds())
	require.Equal(t, int64(55000), opts.BTime.Milliseconds())
	require.Equal(t, 20, opts.MovesToGo)
	require.False(t, opts.Infinite)

	opts = parseGoOptions(strings.Fields("infinite"))
	require.True(t, opts.Infinite)
}

func TestTimeForMoveNeverOvercommits(t *testing.T) {
	u := NewWithIO(engine.NewEngine(1), strings.NewReader(""), &bytes.Buffer{})

	opts := goOptions{WTime: 100, WInc: 0} // 100ns on the clock
	moveTime := u.timeForMove(opts)
	require.GreaterOrEqual(t, moveTime.Milliseconds(), int64(10), "floor keeps the search progressing")

	opts = goOptions{WTime: 60_000_000_000, MovesToGo: 1} // 60s, last move
	moveTime = u.timeForMove(opts)
	require.LessOrEqual(t, moveTime.Milliseconds(), int64(54_000))
}
