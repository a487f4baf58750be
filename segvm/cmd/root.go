// Package cmd provides the command-line interface of segvm.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/sim"
)

// Exit codes of the segvm binary.
const (
	ExitOK = iota
	ExitUsage
	ExitMalformedInput
	ExitTranslationAborted
	ExitMemoryFull
)

var logger = log.New(io.Discard, "segvm: ", 0)

// NewRootCommand creates the segvm command with all its subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "segvm",
		Short: "segvm translates virtual addresses of a segmented, paged memory.",
		Long: `segvm loads a segment table and page tables, then translates ` +
			`virtual addresses to physical word addresses, paging tables and ` +
			`pages in from the backing store on demand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logger.SetOutput(cmd.ErrOrStderr())
			} else {
				logger.SetOutput(io.Discard)
			}

			parallelIDs, _ := cmd.Flags().GetBool("parallel-ids")
			if parallelIDs {
				sim.UseParallelIDGenerator()
			}

			envFile, _ := cmd.Flags().GetString("env")

			return LoadEnvFile(envFile)
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Log every translation and page-in to stderr.")
	rootCmd.PersistentFlags().String("env", ".env",
		"File with SEGVM_* defaults. A missing file is ignored.")
	rootCmd.PersistentFlags().Bool("parallel-ids", false,
		"Use globally unique task IDs instead of sequential ones.")

	rootCmd.AddCommand(
		newTranslateCommand(),
		newDecodeCommand(),
		newInspectCommand(),
		newMonitorCommand(),
	)

	return rootCmd
}

// idGenerator returns the generator of task IDs selected on the command
// line. Without --parallel-ids, every caller numbers its tasks on its own.
func idGenerator(cmd *cobra.Command) sim.IDGenerator {
	parallelIDs, _ := cmd.Flags().GetBool("parallel-ids")
	if parallelIDs {
		return sim.GetIDGenerator()
	}

	return sim.NewSequentialIDGenerator()
}

// Execute runs the root command and exits with the code that matches the
// outcome.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "segvm: %v\n", err)
	}

	atexit.Exit(ExitCode(err))
}

// ExitCode maps an error to the exit code of the binary.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, vm.ErrMemoryFull):
		return ExitMemoryFull
	case errors.Is(err, vm.ErrVirtualAddressOutOfBounds),
		errors.Is(err, vm.ErrMemoryNotInitialized):
		return ExitTranslationAborted
	case errors.Is(err, vm.ErrInvalidSegment),
		errors.Is(err, vm.ErrInvalidPage),
		errors.Is(err, vm.ErrInvalidFrame),
		errors.Is(err, vm.ErrInvalidSegmentSize),
		errors.Is(err, vm.ErrInvalidVirtualAddress),
		errors.Is(err, vm.ErrIncompleteTriple),
		errors.Is(err, vm.ErrVirtualAddressLeadingBits):
		return ExitMalformedInput
	default:
		return ExitUsage
	}
}
