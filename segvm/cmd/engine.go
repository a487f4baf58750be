package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/segvm/mem/trace"
	"github.com/sarchlab/segvm/mem/vm/batch"
	"github.com/sarchlab/segvm/mem/vm/mmu"
	"github.com/sarchlab/segvm/sim"
	"github.com/sarchlab/segvm/tracing"
)

// loadEngine builds an engine from an init file. With verbose logging on, a
// log tracer reports every task.
func loadEngine(initFile string, ids sim.IDGenerator) (*mmu.Engine, error) {
	f, err := os.Open(initFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	segments, pages, err := batch.LoadInit(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", initFile, err)
	}

	engine := mmu.MakeBuilder().WithIDGenerator(ids).Build("MMU")

	err = engine.Initialize(segments, pages)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", initFile, err)
	}

	logger.Printf("loaded %d segment entries and %d page entries from %s",
		len(segments), len(pages), initFile)

	if logger.Writer() != io.Discard {
		tracing.CollectTrace(engine, trace.NewTracer(logger))
	}

	return engine, nil
}
