// Package talia is a chess position-analysis engine: bitboard move
// generation, alpha-beta search with quiescence and a transposition
// table, and optional endgame tablebase probing. This package is the
// embedding surface; the UCI protocol lives in cmd/talia.
package talia

import (
	"github.com/chrisfishbob/Talia/internal/board"
	"github.com/chrisfishbob/Talia/internal/engine"
	"github.com/chrisfishbob/Talia/internal/tablebase"
)

// Limits bound a search; see engine.Limits.
type Limits = engine.Limits

// Result is a search outcome; see engine.Result.
type Result = engine.Result

// StartFEN is the standard initial position.
const StartFEN = board.StartFEN

const defaultHashMB = 64

// Game holds a position, the moves that led to it, and an engine ready
// to analyze it.
type Game struct {
	pos    *board.Position
	eng    *engine.Engine
	hashes []uint64
}

// NewGame starts from the initial position.
func NewGame() *Game {
	g, _ := LoadPosition(StartFEN)
	return g
}

// LoadPosition starts from an arbitrary FEN. The error is a
// *board.ParseError describing the offending field.
func LoadPosition(fen string) (*Game, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	return &Game{
		pos:    pos,
		eng:    engine.NewEngine(defaultHashMB),
		hashes: []uint64{pos.Hash},
	}, nil
}

// Play applies a move in coordinate notation ("e2e4", "a7a8q"). The
// error is a *board.IllegalMoveError when the move does not parse or
// is not legal here.
func (g *Game) Play(uciMove string) error {
	move, err := g.pos.ParseUCIMove(uciMove)
	if err != nil {
		return err
	}
	g.pos.MakeMove(move)
	g.hashes = append(g.hashes, g.pos.Hash)
	return nil
}

// Search analyzes the current position within limits.
func (g *Game) Search(limits Limits) Result {
	g.eng.SetHistory(g.hashes[:len(g.hashes)-1])
	return g.eng.Search(g.pos, limits)
}

// ExportFEN renders the current position.
func (g *Game) ExportFEN() string {
	return g.pos.ToFEN()
}

// Position returns a copy of the current position.
func (g *Game) Position() *board.Position {
	return g.pos.Copy()
}

// LegalMoves lists the legal moves in coordinate notation.
func (g *Game) LegalMoves() []string {
	moves := g.pos.GenerateLegalMoves()
	out := make([]string, 0, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		out = append(out, moves.Get(i).String())
	}
	return out
}

// Status is the game-ending state of the current position.
type Status int

const (
	InProgress Status = iota
	Checkmate
	Stalemate
	Draw // fifty-move rule or insufficient material
)

// Outcome reports whether the game is over and how.
func (g *Game) Outcome() Status {
	switch {
	case g.pos.IsCheckmate():
		return Checkmate
	case g.pos.IsStalemate():
		return Stalemate
	case g.pos.IsDraw():
		return Draw
	default:
		return InProgress
	}
}

// UseTablebase wires the Lichess 7-piece tablebase into root search
// decisions, with an in-memory probe cache.
func (g *Game) UseTablebase() {
	g.UseTablebaseURL(tablebase.DefaultBaseURL)
}

// UseTablebaseURL is UseTablebase against a custom endpoint.
func (g *Game) UseTablebaseURL(baseURL string) {
	g.eng.SetProber(tablebase.NewCachedProber(tablebase.NewLichessProberURL(baseURL), 100_000))
}
