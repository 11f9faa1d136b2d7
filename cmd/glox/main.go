package main

import (
	"os"

	"github.com/mna/glox/internal/maincmd"
	"github.com/mna/mainer"
)

func main() {
	c := maincmd.Cmd{}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
