// Command secprobe runs black-box security probes against a web
// application and reports which checks found a vulnerability.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/EcMarius/secprobe/pkg/output/exitcode"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		var coded *exitcode.Error
		if !errors.As(err, &coded) || coded.Err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
	}
	return int(exitcode.Of(err))
}
