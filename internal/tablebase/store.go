package tablebase

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/chrisfishbob/Talia/internal/board"
	"github.com/chrisfishbob/Talia/internal/storage"
)

var probeKeyPrefix = []byte("tb:")

// StoreProber persists probe results in a storage.Store, so verdicts
// survive restarts and the Lichess API is asked about each position at
// most once per database lifetime. Errors are never persisted.
type StoreProber struct {
	inner Prober
	store *storage.Store
}

// NewStoreProber wraps inner with persistence in store.
func NewStoreProber(inner Prober, store *storage.Store) *StoreProber {
	return &StoreProber{inner: inner, store: store}
}

// storedProbe is the persisted form of a ProbeResult. The move is kept
// in coordinate notation so records stay readable with badger tooling.
type storedProbe struct {
	WDL  WDL    `json:"wdl"`
	DTZ  int    `json:"dtz"`
	Move string `json:"move,omitempty"`
}

func probeKey(hash uint64) []byte {
	key := make([]byte, len(probeKeyPrefix)+8)
	copy(key, probeKeyPrefix)
	binary.BigEndian.PutUint64(key[len(probeKeyPrefix):], hash)
	return key
}

func (sp *StoreProber) Probe(ctx context.Context, pos *board.Position) (ProbeResult, error) {
	key := probeKey(pos.Hash)

	data, err := sp.store.Get(key)
	if err == nil {
		var rec storedProbe
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
			result := ProbeResult{Found: true, WDL: rec.WDL, DTZ: rec.DTZ}
			if rec.Move != "" {
				if m, moveErr := pos.ParseUCIMove(rec.Move); moveErr == nil {
					result.BestMove = m
				}
			}
			return result, nil
		}
		// Unreadable record: fall through and overwrite it.
	} else if !errors.Is(err, storage.ErrNotFound) {
		return ProbeResult{}, err
	}

	result, err := sp.inner.Probe(ctx, pos)
	if err != nil || !result.Found {
		return result, err
	}

	rec := storedProbe{WDL: result.WDL, DTZ: result.DTZ}
	if result.BestMove != board.NoMove {
		rec.Move = result.BestMove.String()
	}
	data, err = json.Marshal(rec)
	if err == nil {
		err = sp.store.Set(key, data)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to persist tablebase probe")
	}
	return result, nil
}

// Len returns the number of persisted probe records.
func (sp *StoreProber) Len() (int, error) {
	return sp.store.CountPrefix(probeKeyPrefix)
}
