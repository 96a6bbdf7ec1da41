// Command backendtb resets a modeled processor backend, drives a short
// program into it and runs it until it halts, tracing every signal.
package main

import "github.com/sarchlab/backendtb/backendtb/cmd"

func main() {
	cmd.Execute()
}
