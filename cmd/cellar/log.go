package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cellarscm/engine/modules/record"
	"github.com/cellarscm/engine/pkg/store"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/rivo/uniseg"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

const maxNameWidth = 40

func runLog(args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "repository directory")
	branch := fs.String("branch", "main", "branch to show history for")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := store.Open(*repoPath)
	if err != nil {
		return err
	}
	tip, ok := r.Branch(*branch)
	if !ok {
		return fmt.Errorf("no such branch %q", *branch)
	}
	chain := r.GetCommitChain(tip)

	color := isatty.IsTerminal(os.Stdout.Fd())
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}

	p := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(width))
	bar := p.New(int64(len(chain)),
		mpb.BarStyle().Filler("=").Padding(" "),
		mpb.PrependDecorators(decor.Name("walking "+*branch)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)

	for _, id := range chain {
		c, err := r.GetCommit(id)
		if err != nil {
			bar.Increment()
			continue
		}
		label := commitLabel(c)
		name := id.String()[:16]
		if color {
			name = ansi.Color(name, "cyan")
		}
		line := fmt.Sprintf("%s  %-8s", name, label)
		if info, err := r.GetCommitInfo(id); err == nil && info != nil {
			when := time.Unix(int64(info.Timestamp), 0)
			line += fmt.Sprintf("  %s  %s", humanize.Time(when), truncateName(info.Text, maxNameWidth))
		}
		if c.HasResize {
			line += "  " + humanize.Bytes(c.Size)
		}
		fmt.Println(line)
		bar.Increment()
	}
	p.Wait()
	return nil
}

func commitLabel(c *record.Commit) string {
	switch {
	case c.Delete:
		return "delete"
	case c.HasFolder:
		return "folder"
	case c.NewFile:
		return "newfile"
	default:
		return "edit"
	}
}

func truncateName(s string, maxWidth int) string {
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	gr := uniseg.NewGraphemes(s)
	out := make([]rune, 0, maxWidth)
	w := 0
	for gr.Next() {
		rs := gr.Runes()
		cw := uniseg.StringWidth(string(rs))
		if w+cw > maxWidth-1 {
			break
		}
		out = append(out, rs...)
		w += cw
	}
	return string(out) + "…"
}
