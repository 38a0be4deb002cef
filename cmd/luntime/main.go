// Command luntime is the CLI entry point spec §6.1 describes as an
// external collaborator: it reads a source file, runs the pipeline,
// and reports the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cxleb/luna/pkg/luntime"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: luntime run [-entry name] <path>")
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	entry := fs.String("entry", "main", "name of the function to invoke")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	if err := runFile(fs.Arg(0), *entry); err != nil {
		os.Exit(1)
	}
}

// runFile implements spec §6.1: exit code 0 on clean execution,
// non-zero with a `Kind Error at line:col: message` diagnostic on
// parse/type error.
func runFile(path, entry string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "luntime: %s\n", err)
		return err
	}
	source := string(data)

	rt := luntime.New(os.Stdout)
	val, runErr := rt.Run(source, entry)
	if runErr != nil {
		luntime.DisplayError(os.Stderr, source, runErr)
		return fmt.Errorf("%s", runErr.Message())
	}
	_ = val // the entry function's return value is not surfaced on the CLI beyond exit status
	return nil
}
