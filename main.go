// Package main implements cranecheck, a pre-operation crane inspection
// checklist served as a web application or run in a terminal.
//
// Usage:
//
//	cranecheck serve [--port N] [--checklist ID]
//	cranecheck run [--checklist ID]
//
// If --config is not specified, cranecheck looks for config.json in the same
// directory as the binary.
package main

func main() {
	Execute()
}
