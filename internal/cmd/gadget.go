package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gadgetkb/gadgetkb/gadget"
)

// GadgetCommand groups the configfs keyboard gadget subcommands.
type GadgetCommand struct {
	Setup    GadgetSetup    `cmd:"" help:"Create a USB HID keyboard gadget and bind it (needs root)"`
	Teardown GadgetTeardown `cmd:"" help:"Unbind and remove the keyboard gadget"`
}

type GadgetSetup struct {
	Gadget gadget.Config `embed:""`

	stdout io.Writer
}

// Run is called by Kong when the gadget setup command is executed.
func (g *GadgetSetup) Run(logger *slog.Logger) error {
	dev, err := gadget.Setup(g.Gadget, logger)
	if err != nil {
		return err
	}
	out := g.stdout
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintln(out, dev)
	return err
}

type GadgetTeardown struct {
	Gadget gadget.Config `embed:""`
}

// Run is called by Kong when the gadget teardown command is executed.
func (g *GadgetTeardown) Run(logger *slog.Logger) error {
	return gadget.Teardown(g.Gadget, logger)
}
