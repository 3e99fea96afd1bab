// Package main is the entry point for the subchurn CLI tool, which searches
// subtitle transcripts and builds player-churn features and classifiers.
package main

import "github.com/pable/go-subchurn/cmd"

func main() {
	cmd.Execute()
}
