package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gadgetkb/gadgetkb/keyboard"
)

// Keys lists the names usable between < and >.
type Keys struct {
	stdout io.Writer
}

// Run is called by Kong when the keys command is executed.
func (k *Keys) Run() error {
	out := k.stdout
	if out == nil {
		out = os.Stdout
	}
	var b strings.Builder
	b.WriteString("Keys:\n")
	for _, name := range keyboard.KeyNames() {
		kc, err := keyboard.Resolve(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "  <%s>\t0x%02x\n", name, kc.Usage)
	}
	b.WriteString("Modifiers (toggle):\n")
	for _, name := range keyboard.ModifierNames() {
		mod, _ := keyboard.ModifierByName(name)
		fmt.Fprintf(&b, "  <%s>\t0x%02x\n", name, uint8(mod))
	}
	_, err := io.WriteString(out, b.String())
	return err
}
