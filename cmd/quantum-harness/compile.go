package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Minapak/SwiftQuantum/internal/qasm"
)

func newCompileCmd() *cobra.Command {
	var qubits int

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the Bell state circuit as OpenQASM 3.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if qubits > 0 {
				cfg.Qubits = qubits
			}
			circuit := qasm.BellState(cfg.Qubits)
			fmt.Print(circuit.Text)
			return nil
		},
	}

	cmd.Flags().IntVar(&qubits, "qubits", 0, "Circuit register width (overrides config)")

	return cmd
}
