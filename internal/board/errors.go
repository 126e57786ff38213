package board

import "fmt"

// ParseError reports a malformed FEN string. Field names the FEN field
// that failed ("placement", "side", "castling", "en passant",
// "halfmove", "fullmove", or "fen" for structural problems).
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse fen: %s field %q: %s", e.Field, e.Value, e.Reason)
}

// IllegalMoveError reports a syntactically valid move that is not legal
// in the position it was played in.
type IllegalMoveError struct {
	Move string
	FEN  string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s in position %q", e.Move, e.FEN)
}

// ParseUCIMove parses a UCI coordinate move and verifies it is legal in
// pos. Malformed input and moves not present in the legal move list
// both come back as *IllegalMoveError.
func (p *Position) ParseUCIMove(s string) (Move, error) {
	m, err := ParseMove(s, p)
	if err != nil {
		return NoMove, &IllegalMoveError{Move: s, FEN: p.ToFEN()}
	}
	legal := p.GenerateLegalMoves()
	if !legal.Contains(m) {
		return NoMove, &IllegalMoveError{Move: s, FEN: p.ToFEN()}
	}
	return m, nil
}
