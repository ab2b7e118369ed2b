package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"deskhand/internal/agent"
	"deskhand/internal/intent"
	"deskhand/internal/registry"
)

// runREPL is the interactive prompt. Meta commands (help, quit) are
// handled here; everything else goes through the interpretation
// pipeline.
func runREPL(ctx context.Context, a *agent.Agent) error {
	fmt.Println("deskhand ready. Type a command, or help / quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[%s]> ", shortPath(a.Location()))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "bye":
			fmt.Println("bye")
			return nil
		case "help":
			printHelp()
			continue
		}

		res, err := a.Handle(ctx, line)
		if err != nil {
			if reportError(err) == nil {
				continue
			}
			fmt.Println("error:", err)
			continue
		}
		printResult(res)
	}
}

// reportError prints clarification prompts for ambiguous commands and
// returns nil for them; anything else is passed back to the caller.
func reportError(err error) error {
	var amb *intent.AmbiguousError
	if errors.As(err, &amb) {
		fmt.Println("That could mean more than one thing:")
		for i, c := range amb.Candidates {
			fmt.Printf("  %d. %s\n", i+1, c)
		}
		fmt.Println("Please say it more precisely (e.g. \"delete file X\" or \"delete folder X\").")
		return nil
	}
	var low *intent.LowConfidenceError
	if errors.As(err, &low) {
		fmt.Printf("I think you mean %s, but I'm not sure enough to run it.\n", low.Candidate.Kind)
		fmt.Println("Please rephrase, or say \"what can you do\" for the command list.")
		return nil
	}
	return err
}

func printResult(res registry.Result) {
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	for _, line := range res.Details {
		fmt.Println("  " + line)
	}
}

func printHelp() {
	fmt.Println(`Say what you want in plain words, for example:
  go to documents            create folder invoices
  list files                 delete file old.txt
  move report.txt to desktop what was i doing
  undo                       undo everything from the last 2 hours
  search budget everywhere   take a screenshot

Chain commands with "then":
  go to downloads then create folder sorted then list files

Type "what can you do" for the full capability list, quit to leave.`)
}

func shortPath(path string) string {
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
