package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chrisfishbob/Talia/internal/board"
)

// DefaultBaseURL is the public Lichess tablebase endpoint.
const DefaultBaseURL = "https://tablebase.lichess.ovh"

// LichessProber queries the Lichess 7-piece tablebase API. The service
// is rate limited, so production use should wrap it in a CachedProber
// or StoreProber.
type LichessProber struct {
	client  *http.Client
	baseURL string
}

// NewLichessProber creates a prober against the public Lichess API.
func NewLichessProber() *LichessProber {
	return NewLichessProberURL(DefaultBaseURL)
}

// NewLichessProberURL creates a prober against a custom endpoint,
// typically a test server or a self-hosted lila-tablebase instance.
func NewLichessProberURL(baseURL string) *LichessProber {
	return &LichessProber{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// lichessResponse mirrors the /standard endpoint. Moves come sorted
// best-first for the side to move.
type lichessResponse struct {
	Category string `json:"category"`
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      int    `json:"dtz"`
	} `json:"moves"`
}

// Probe looks up pos. Positions outside tablebase scope return a
// not-found result without a network round trip.
func (lp *LichessProber) Probe(ctx context.Context, pos *board.Position) (ProbeResult, error) {
	if !Applicable(pos) {
		return ProbeResult{}, nil
	}

	// Lichess takes the FEN with spaces replaced by underscores.
	fen := strings.ReplaceAll(pos.ToFEN(), " ", "_")
	url := fmt.Sprintf("%s/standard?fen=%s", lp.baseURL, fen)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("tablebase: build request: %w", err)
	}
	resp, err := lp.client.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("tablebase: probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProbeResult{}, fmt.Errorf("tablebase: probe: unexpected status %s", resp.Status)
	}

	var body lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ProbeResult{}, fmt.Errorf("tablebase: decode response: %w", err)
	}

	result := ProbeResult{
		Found: true,
		WDL:   categoryToWDL(body.Category),
		DTZ:   body.DTZ,
	}
	if len(body.Moves) > 0 {
		if m, err := pos.ParseUCIMove(body.Moves[0].UCI); err == nil {
			result.BestMove = m
		}
	}
	return result, nil
}

func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "cursed-win", "maybe-win":
		return WDLCursedWin
	case "blessed-loss", "maybe-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	default:
		return WDLDraw
	}
}
