package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/segvm/mem/vm"
)

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode ADDRESS...",
		Short: "Print the segment, page and word of raw addresses.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				va, err := vm.ParseVirtualAddress(arg)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", va.Raw(), va)
			}

			return nil
		},
	}
}
