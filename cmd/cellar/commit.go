package main

import (
	"flag"
	"fmt"

	"github.com/cellarscm/engine/pkg/store"
)

func runCommit(args []string) error {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "repository directory")
	branch := fs.String("branch", "main", "branch to advance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return flag.ErrHelp
	}
	path := fs.Arg(0)

	r, err := store.Open(*repoPath)
	if err != nil {
		return err
	}

	prev, _ := r.Branch(*branch)
	newTip, err := r.CreateCommit(prev, path, true)
	if err != nil {
		return err
	}
	if newTip == prev {
		fmt.Println("nothing to commit")
		return nil
	}
	if newTip.IsZero() {
		// Nothing ever existed at path and nothing did before either;
		// there's no commit to advance the branch to.
		fmt.Println("nothing to commit")
		return nil
	}
	ok, err := r.PushCommitOntoBranch(newTip, *branch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("branch %q moved concurrently, retry", *branch)
	}
	fmt.Printf("%s -> %s\n", *branch, newTip)
	return nil
}
