// Command talia runs the engine as a UCI server on stdin/stdout.
package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chrisfishbob/Talia/internal/engine"
	"github.com/chrisfishbob/Talia/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	// Diagnostics go to stderr; stdout belongs to the UCI protocol.
	level := zerolog.InfoLevel
	if os.Getenv("DEBUG_TALIA") != "" {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create cpu profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start cpu profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", *cpuprofile).Msg("cpu profiling enabled")
	}

	eng := engine.NewEngine(*hashMB)
	uci.New(eng).Run()
}
