// Package uci speaks the Universal Chess Interface protocol over a
// reader/writer pair, translating GUI commands into engine calls.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chrisfishbob/Talia/internal/board"
	"github.com/chrisfishbob/Talia/internal/engine"
	"github.com/chrisfishbob/Talia/internal/storage"
	"github.com/chrisfishbob/Talia/internal/tablebase"
)

const defaultHashMB = 64

// UCI drives one engine instance over the protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	// hashes of every position since game start, for repetition
	// detection across the search boundary
	hashes []uint64

	in  io.Reader
	out io.Writer

	searchDone chan struct{}

	tablebaseURL string
	tbEnabled    bool
	probeStore   *storage.Store
}

// New creates a handler reading from stdin and writing to stdout.
func New(eng *engine.Engine) *UCI {
	return NewWithIO(eng, os.Stdin, os.Stdout)
}

// NewWithIO creates a handler over explicit streams, which tests use.
func NewWithIO(eng *engine.Engine, in io.Reader, out io.Writer) *UCI {
	pos := board.NewPosition()
	return &UCI{
		engine:       eng,
		position:     pos,
		hashes:       []uint64{pos.Hash},
		in:           in,
		out:          out,
		tablebaseURL: tablebase.DefaultBaseURL,
	}
}

// Run reads commands until "quit" or EOF.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(u.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if u.handleLine(line) {
			break
		}
	}
	u.engine.Stop()
	u.waitForSearch()
	if u.probeStore != nil {
		u.probeStore.Close()
	}
}

// handleLine dispatches one command; it returns true on quit.
func (u *UCI) handleLine(line string) bool {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		fmt.Fprintln(u.out, "readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "setoption":
		u.handleSetOption(args)
	case "d":
		fmt.Fprintln(u.out, u.position.String())
	case "eval":
		fmt.Fprintf(u.out, "static eval: %s\n", engine.ScoreToString(engine.Evaluate(u.position)))
	case "perft":
		u.handlePerft(args)
	case "quit":
		u.handleStop()
		return true
	default:
		log.Debug().Str("command", cmd).Msg("ignoring unknown uci command")
	}
	return false
}

func (u *UCI) handleUCI() {
	fmt.Fprintln(u.out, "id name Talia")
	fmt.Fprintln(u.out, "id author chrisfishbob")
	fmt.Fprintln(u.out)
	fmt.Fprintf(u.out, "option name Hash type spin default %d min 1 max 4096\n", defaultHashMB)
	fmt.Fprintln(u.out, "option name UseTablebase type check default false")
	fmt.Fprintf(u.out, "option name TablebaseURL type string default %s\n", tablebase.DefaultBaseURL)
	fmt.Fprintln(u.out, "option name PersistProbes type check default false")
	fmt.Fprintln(u.out, "uciok")
}

func (u *UCI) handleNewGame() {
	u.waitForSearch()
	u.engine.Clear()
	u.position = board.NewPosition()
	u.hashes = []uint64{u.position.Hash}
}

// handlePosition sets up a position:
//
//	position startpos [moves e2e4 e7e5 ...]
//	position fen <fen> [moves ...]
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	moveStart := len(args)
	for i, arg := range args {
		if arg == "moves" {
			moveStart = i + 1
			break
		}
	}

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
	case "fen":
		fenEnd := moveStart
		if moveStart < len(args) {
			fenEnd = moveStart - 1
		}
		pos, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			fmt.Fprintf(u.out, "info string invalid fen: %v\n", err)
			return
		}
		u.position = pos
	default:
		return
	}

	u.hashes = []uint64{u.position.Hash}
	for _, moveStr := range args[moveStart:] {
		move, err := u.position.ParseUCIMove(moveStr)
		if err != nil {
			fmt.Fprintf(u.out, "info string %v\n", err)
			return
		}
		u.position.MakeMove(move)
		u.hashes = append(u.hashes, u.position.Hash)
	}
}

// goOptions holds parsed "go" arguments.
type goOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

func (u *UCI) handleGo(args []string) {
	u.waitForSearch()
	opts := parseGoOptions(args)

	u.engine.SetHistory(u.hashes[:len(u.hashes)-1])
	u.engine.OnInfo = func(info engine.Result) {
		u.sendInfo(info)
	}

	limits := u.calculateLimits(opts)
	pos := u.position.Copy()

	u.searchDone = make(chan struct{})
	go func() {
		defer close(u.searchDone)
		result := u.engine.Search(pos, limits)

		if result.BestMove == board.NoMove {
			fmt.Fprintln(u.out, "bestmove 0000")
			return
		}
		fmt.Fprintf(u.out, "bestmove %s\n", result.BestMove.String())
	}()
}

func parseGoOptions(args []string) goOptions {
	opts := goOptions{}
	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "infinite" {
			opts.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		value := args[i+1]
		switch arg {
		case "depth":
			opts.Depth, _ = strconv.Atoi(value)
		case "nodes":
			opts.Nodes, _ = strconv.ParseUint(value, 10, 64)
		case "movetime":
			opts.MoveTime = ms(value)
		case "wtime":
			opts.WTime = ms(value)
		case "btime":
			opts.BTime = ms(value)
		case "winc":
			opts.WInc = ms(value)
		case "binc":
			opts.BInc = ms(value)
		case "movestogo":
			opts.MovesToGo, _ = strconv.Atoi(value)
		default:
			continue
		}
		i++
	}
	return opts
}

func (u *UCI) calculateLimits(opts goOptions) engine.Limits {
	limits := engine.Limits{
		Depth: opts.Depth,
		Nodes: opts.Nodes,
	}
	if opts.Infinite {
		limits.Infinite = true
		return limits
	}
	if opts.MoveTime > 0 {
		limits.MoveTime = opts.MoveTime
	} else if opts.WTime > 0 || opts.BTime > 0 {
		limits.MoveTime = u.timeForMove(opts)
	}
	return limits
}

// timeForMove splits the remaining clock over an estimate of the moves
// left in the game.
func (u *UCI) timeForMove(opts goOptions) time.Duration {
	ourTime, ourInc := opts.WTime, opts.WInc
	if u.position.SideToMove == board.Black {
		ourTime, ourInc = opts.BTime, opts.BInc
	}

	movesRemaining := opts.MovesToGo
	if movesRemaining <= 0 {
		movesRemaining = estimateMovesRemaining(u.position)
	}

	moveTime := ourTime/time.Duration(movesRemaining) + ourInc*90/100

	// Never commit more than 90% of what is on the clock.
	if maxTime := ourTime * 90 / 100; moveTime > maxTime {
		moveTime = maxTime
	}
	if moveTime < 10*time.Millisecond {
		moveTime = 10 * time.Millisecond
	}

	log.Debug().
		Dur("allocated", moveTime).
		Int("moves_remaining", movesRemaining).
		Dur("clock", ourTime).
		Msg("time split")
	return moveTime
}

func estimateMovesRemaining(pos *board.Position) int {
	switch pieces := pos.PieceCount(); {
	case pieces > 24:
		return 40
	case pieces > 12:
		return 30
	default:
		return 20
	}
}

func (u *UCI) sendInfo(info engine.Result) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("seldepth %d", info.SelDepth),
		fmt.Sprintf("score %s", engine.ScoreToString(info.Score)),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Elapsed.Milliseconds()),
	}
	if info.Elapsed > 0 {
		nps := uint64(float64(info.Nodes) / info.Elapsed.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if hashfull := u.engine.HashFull(); hashfull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", hashfull))
	}
	if len(info.PV) > 0 {
		parts = append(parts, "pv "+engine.MovesToString(info.PV))
	}
	fmt.Fprintf(u.out, "info %s\n", strings.Join(parts, " "))
}

func (u *UCI) handleStop() {
	u.engine.Stop()
	u.waitForSearch()
}

// waitForSearch blocks until the in-flight search finishes. Stop is
// re-issued while waiting: a search that had not yet started when the
// first Stop arrived clears the flag on entry and would otherwise run
// its budget out.
func (u *UCI) waitForSearch() {
	if u.searchDone == nil {
		return
	}
	for {
		select {
		case <-u.searchDone:
			u.searchDone = nil
			return
		case <-time.After(10 * time.Millisecond):
			u.engine.Stop()
		}
	}
}

// handleSetOption parses "setoption name <name> value <value>".
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	target := (*string)(nil)
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target == nil {
				continue
			}
			if *target != "" {
				*target += " "
			}
			*target += arg
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil && mb >= 1 {
			u.engine.Resize(mb)
		}
	case "usetablebase":
		if strings.EqualFold(value, "true") {
			u.tbEnabled = true
			u.enableTablebase()
		} else {
			u.tbEnabled = false
			u.engine.SetProber(nil)
		}
	case "tablebaseurl":
		if value != "" {
			u.tablebaseURL = value
			if u.tbEnabled {
				u.enableTablebase()
			}
		}
	case "persistprobes":
		if strings.EqualFold(value, "true") {
			u.enableProbeStore()
		}
	default:
		log.Debug().Str("name", name).Msg("ignoring unknown option")
	}
}

// enableTablebase wires a cached Lichess prober into the engine,
// layered on the persistent store when one is open.
func (u *UCI) enableTablebase() {
	var prober tablebase.Prober = tablebase.NewLichessProberURL(u.tablebaseURL)
	if u.probeStore != nil {
		prober = tablebase.NewStoreProber(prober, u.probeStore)
	}
	u.engine.SetProber(tablebase.NewCachedProber(prober, 100_000))
	fmt.Fprintf(u.out, "info string tablebase enabled at %s\n", u.tablebaseURL)
}

func (u *UCI) enableProbeStore() {
	if u.probeStore != nil {
		return
	}
	store, err := storage.Open("")
	if err != nil {
		fmt.Fprintf(u.out, "info string cannot open probe store: %v\n", err)
		return
	}
	u.probeStore = store
	if u.tbEnabled {
		// Rewire the prober so new probes persist.
		u.enableTablebase()
	}
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			depth = n
		}
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Fprintf(u.out, "nodes %d\n", nodes)
	fmt.Fprintf(u.out, "time %v\n", elapsed)
	if elapsed > 0 {
		fmt.Fprintf(u.out, "nps %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
