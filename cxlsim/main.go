// Command cxlsim runs a CXL memory expander simulation.
package main

import (
	"github.com/sarchlab/cxlsim/cxlsim/cmd"
)

func main() {
	cmd.Execute()
}
