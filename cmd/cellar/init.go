package main

import (
	"flag"

	"github.com/cellarscm/engine/pkg/store"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	name := fs.String("name", "", "display name for the new repository")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return flag.ErrHelp
	}
	path := fs.Arg(0)
	if *name == "" {
		*name = path
	}
	_, err := store.Create(path, *name)
	return err
}
