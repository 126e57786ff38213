// Package tablebase looks up perfect endgame results for positions
// with at most seven pieces, backed by the Lichess tablebase API with
// optional in-memory and on-disk caching layers.
package tablebase

import (
	"context"

	"github.com/chrisfishbob/Talia/internal/board"
)

// WDL is a win/draw/loss verdict from the side to move's perspective.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // lost, but the fifty-move rule saves a draw
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // won, but the fifty-move rule spoils it
	WDLWin         WDL = 2
)

// MaxPieces is the largest piece count published tablebases cover.
const MaxPieces = 7

// ProbeResult is the verdict for one position. BestMove is a tablebase
// move preserving the verdict, or NoMove when the source reports none.
type ProbeResult struct {
	Found    bool
	WDL      WDL
	DTZ      int // distance to the next zeroing move
	BestMove board.Move
}

// Prober answers endgame lookups. Implementations must be safe for
// concurrent use.
type Prober interface {
	Probe(ctx context.Context, pos *board.Position) (ProbeResult, error)
}

// Applicable reports whether pos can be in a tablebase: at most
// MaxPieces pieces and no castling rights, since no published set
// indexes castling.
func Applicable(pos *board.Position) bool {
	return pos.PieceCount() <= MaxPieces && pos.CastlingRights == 0
}

// Search scores for tablebase verdicts. Wins score below mate scores so
// a found forced mate is still preferred, and cursed wins sit near zero
// because the fifty-move rule turns them into draws.
const tbWinScore = 25000

// WDLToScore converts a verdict to a search score in the side to move's
// perspective.
func WDLToScore(wdl WDL) int {
	switch wdl {
	case WDLWin:
		return tbWinScore
	case WDLCursedWin:
		return 100
	case WDLBlessedLoss:
		return -100
	case WDLLoss:
		return -tbWinScore
	default:
		return 0
	}
}

// NoopProber never finds anything. It stands in when no tablebase
// source is configured.
type NoopProber struct{}

func (NoopProber) Probe(context.Context, *board.Position) (ProbeResult, error) {
	return ProbeResult{}, nil
}
