package main

import (
	"flag"
	"fmt"

	"github.com/cellarscm/engine/modules/cid"
	"github.com/cellarscm/engine/pkg/store"
)

func runCheckout(args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "repository directory")
	branch := fs.String("branch", "", "branch to check out instead of a raw CID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := store.Open(*repoPath)
	if err != nil {
		return err
	}

	var id cid.ID
	var dest string
	if *branch != "" {
		if fs.NArg() != 1 {
			return flag.ErrHelp
		}
		ok := false
		if id, ok = r.Branch(*branch); !ok {
			return fmt.Errorf("no such branch %q", *branch)
		}
		dest = fs.Arg(0)
	} else {
		if fs.NArg() != 2 {
			return flag.ErrHelp
		}
		id = cid.Parse(fs.Arg(0))
		dest = fs.Arg(1)
	}
	return r.BuildCommit(id, dest)
}
