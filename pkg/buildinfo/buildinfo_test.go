package buildinfo

import (
	"fmt"
	"testing"

	. "src.calc.sh/pkg/prog/progtest"
)

func TestProgram(t *testing.T) {
	Test(t, Program{},
		ThatCalcsh("-version").WritesStdout(Value.Version+"\n"),
		ThatCalcsh("-version", "-json").WritesStdout(mustToJSON(Value.Version)+"\n"),

		ThatCalcsh("-buildinfo").WritesStdout(
			fmt.Sprintf("Version: %v\nGo version: %v\n", Value.Version, Value.GoVersion)),
		ThatCalcsh("-buildinfo", "-json").WritesStdout(mustToJSON(Value)+"\n"),

		ThatCalcsh().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}
