// Command cellar is a minimal command-line front end for the storage
// engine: enough to create a repository, commit a path into it, list a
// branch's history, and check a commit back out, without any of the
// network or worktree machinery a full source-control client needs.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

type command struct {
	name string
	help string
	run  func(args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"init", "create an empty repository", runInit},
		{"commit", "commit a path onto a branch", runCommit},
		{"log", "show a branch's commit history", runLog},
		{"checkout", "materialize a commit into a directory", runCheckout},
		{"branch", "list or delete branches", runBranch},
	}
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{})
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, c := range commands {
		if c.name == name {
			if err := c.run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "cellar %s: %v\n", name, err)
				os.Exit(1)
			}
			return
		}
	}
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cellar <command> [arguments]")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.help)
	}
}
