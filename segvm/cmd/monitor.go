package cmd

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/mem/vm/batch"
	"github.com/sarchlab/segvm/mem/vm/mmu"
	"github.com/sarchlab/segvm/monitoring"
)

func newMonitorCommand() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve an engine over HTTP until interrupted.",
		Long: "`monitor` loads the init file and serves the engine state and " +
			"a translate endpoint. With --input, the address file is " +
			"translated in the background and its results are written to " +
			"stdout.",
		Args: cobra.NoArgs,
		RunE: runMonitor,
	}

	monitorCmd.Flags().String("init", "",
		"Init file. Defaults to $"+EnvInit+" or "+DefaultInitFile+".")
	monitorCmd.Flags().String("input", "",
		"Address file to translate while serving.")
	monitorCmd.Flags().Int("port", 0,
		"Port to listen on, 0 for a random one. Defaults to $"+
			EnvMonitorPort+".")
	monitorCmd.Flags().Bool("open", false, "Open the dashboard in a browser.")
	addPolicyFlags(monitorCmd)

	return monitorCmd
}

// lockedTranslator holds the monitor lock for each translation so that the
// HTTP handlers can interleave with a running batch.
type lockedTranslator struct {
	monitor *monitoring.Monitor
	engine  mmu.Translator
}

func (t lockedTranslator) Translate(va vm.VirtualAddress) (uint32, error) {
	t.monitor.Lock()
	defer t.monitor.Unlock()

	return t.engine.Translate(va)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ids := idGenerator(cmd)

	engine, err := loadEngine(cfg.InitFile, ids)
	if err != nil {
		return err
	}

	monitor := monitoring.NewMonitor(engine).
		WithIDGenerator(ids).
		WithPortNumber(cfg.MonitorPort)

	port, err := monitor.StartServer()
	if err != nil {
		return err
	}

	open, _ := cmd.Flags().GetBool("open")
	if open {
		err = monitoring.OpenInBrowser(port)
		if err != nil {
			logger.Printf("cannot open browser: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, _ := cmd.Flags().GetString("input")
	if input != "" {
		err = runMonitoredBatch(cmd, monitor, engine, input, cfg.Options)
		if err != nil {
			shutdown(monitor)
			return err
		}
	}

	<-ctx.Done()

	return shutdown(monitor)
}

func runMonitoredBatch(
	cmd *cobra.Command,
	monitor *monitoring.Monitor,
	engine *mmu.Engine,
	inputFile string,
	opts batch.Options,
) error {
	content, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}

	bar := monitor.CreateProgressBar(inputFile, uint64(len(bytes.Fields(content))))
	defer monitor.CompleteProgressBar(bar)

	opts.Progress = bar

	return batch.Run(
		lockedTranslator{monitor: monitor, engine: engine},
		bytes.NewReader(content),
		cmd.OutOrStdout(),
		opts,
	)
}

func shutdown(monitor *monitoring.Monitor) error {
	return monitor.Shutdown(context.Background())
}
