// Package qasm generates OPENQASM 3.0 program text for the circuits the
// harness submits. Generation is pure: the same inputs always produce
// byte-identical output.
package qasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Circuit is a compiled native-gate program.
type Circuit struct {
	Text   string
	Qubits int
}

// halfPi is the radian argument used by the Hadamard decomposition,
// rendered in the shortest form that round-trips to the same float64.
var halfPi = strconv.FormatFloat(math.Pi/2, 'g', -1, 64)

// BellState builds a program that prepares and measures a two-qubit Bell
// pair on a register of the given width, using only gates native to Heron
// processors (rz, sx, cz). The decomposition is fixed by the hardware gate
// set: Hadamard is rz(pi/2), sx, rz(pi/2), and CNOT is the CZ conjugated by
// Hadamards on the target. Registers narrower than two qubits are widened
// to two, since the entangled pair needs q[0] and q[1].
func BellState(qubits int) Circuit {
	if qubits < 2 {
		qubits = 2
	}

	var b strings.Builder
	b.WriteString("OPENQASM 3.0;\n")
	b.WriteString("include \"stdgates.inc\";\n")
	fmt.Fprintf(&b, "qubit[%d] q;\n", qubits)
	b.WriteString("bit[2] c;\n")
	b.WriteString("\n")

	b.WriteString("// hadamard on q[0]\n")
	hadamard(&b, 0)
	b.WriteString("\n")

	b.WriteString("// cx q[0], q[1] via cz conjugated by hadamards on the target\n")
	hadamard(&b, 1)
	b.WriteString("cz q[0], q[1];\n")
	hadamard(&b, 1)
	b.WriteString("\n")

	b.WriteString("c[0] = measure q[0];\n")
	b.WriteString("c[1] = measure q[1];\n")

	return Circuit{Text: b.String(), Qubits: qubits}
}

func hadamard(b *strings.Builder, q int) {
	fmt.Fprintf(b, "rz(%s) q[%d];\n", halfPi, q)
	fmt.Fprintf(b, "sx q[%d];\n", q)
	fmt.Fprintf(b, "rz(%s) q[%d];\n", halfPi, q)
}
