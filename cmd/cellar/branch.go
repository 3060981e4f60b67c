package main

import (
	"flag"
	"fmt"

	"github.com/cellarscm/engine/pkg/store"
)

func runBranch(args []string) error {
	fs := flag.NewFlagSet("branch", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "repository directory")
	del := fs.String("delete", "", "delete the named branch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := store.Open(*repoPath)
	if err != nil {
		return err
	}

	if *del != "" {
		return r.DeleteBranch(*del)
	}

	for _, b := range r.ListBranches() {
		fmt.Printf("%-20s %s\n", b.Name, b.Tip)
	}
	return nil
}
