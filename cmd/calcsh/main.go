// Calcsh is a calculator shell. Expressions are evaluated as they are typed,
// and committed ones are kept in a history shared by all running shells
// through a daemon.
package main

import (
	"os"

	"src.calc.sh/pkg/buildinfo"
	"src.calc.sh/pkg/daemon"
	"src.calc.sh/pkg/prog"
	"src.calc.sh/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			buildinfo.Program{}, &daemon.Program{},
			shell.Program{ActivateDaemon: daemon.Activate})))
}
