package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/segvm/datarecording"
	"github.com/sarchlab/segvm/mem/trace"
	"github.com/sarchlab/segvm/mem/vm/batch"
	"github.com/sarchlab/segvm/tracing"
)

func newTranslateCommand() *cobra.Command {
	translateCmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a file of virtual addresses.",
		Long: "`translate` loads the init file, translates every address of " +
			"the input file in order and writes the physical addresses on " +
			"one line. Under the abort policy a failed translation stops " +
			"the run and no output is written.",
		Args: cobra.NoArgs,
		RunE: runTranslate,
	}

	addFileFlags(translateCmd)
	addPolicyFlags(translateCmd)
	translateCmd.Flags().String("record", "",
		"Record translations and page-ins into <path>.sqlite3. "+
			"Defaults to $"+EnvRecord+".")
	translateCmd.Flags().String("trace-json", "",
		"Write every translation and page-in as JSON into this file.")

	return translateCmd
}

func runTranslate(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	engine, err := loadEngine(cfg.InitFile, idGenerator(cmd))
	if err != nil {
		return err
	}

	if cfg.RecordPath != "" {
		_, err = os.Stat(cfg.RecordPath + ".sqlite3")
		if err == nil {
			return fmt.Errorf("recording %s.sqlite3 already exists",
				cfg.RecordPath)
		}

		recorder := datarecording.New(cfg.RecordPath)
		defer recorder.Close()

		tracing.CollectTrace(engine, trace.NewDBTracer(recorder))
		logger.Printf("recording into %s.sqlite3", cfg.RecordPath)
	}

	jsonFile, _ := cmd.Flags().GetString("trace-json")
	if jsonFile != "" {
		f, err := os.Create(jsonFile)
		if err != nil {
			return err
		}
		defer f.Close()

		jsonTracer := tracing.NewJSONTracer(f)
		defer jsonTracer.Close()

		tracing.CollectTrace(engine, jsonTracer)
	}

	input, err := os.Open(cfg.InputFile)
	if err != nil {
		return err
	}
	defer input.Close()

	out := new(bytes.Buffer)

	err = batch.Run(engine, input, out, cfg.Options)
	if err != nil {
		return err
	}

	stats := engine.Stats()
	logger.Printf("%d translations, %d page-table faults, %d page faults, "+
		"%d free frames", stats.Translations, stats.PageTableFaults,
		stats.PageFaults, stats.FreeFrames)

	if cfg.OutputFile == "-" {
		_, err = cmd.OutOrStdout().Write(out.Bytes())
		return err
	}

	return os.WriteFile(cfg.OutputFile, out.Bytes(), 0o644)
}
