// Package config holds the command line layout of gadgetkb. Every flag can
// also be set from the environment or a JSON/YAML/TOML config file.
package config

import "github.com/gadgetkb/gadgetkb/internal/cmd"

type Log struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"GADGETKB_LOG_LEVEL"`
	File    string `help:"Log to this file instead of the console" type:"path" env:"GADGETKB_LOG_FILE"`
	RawFile string `help:"Hex dump every report written to the keyboard into this file" type:"path" env:"GADGETKB_LOG_RAW_FILE"`
}

type CLI struct {
	Log    Log    `embed:"" prefix:"log."`
	Config string `help:"Configuration file (JSON, YAML or TOML)" type:"path" env:"GADGETKB_CONFIG"`

	Type   cmd.Type          `cmd:"" help:"Type keystroke scripts on a keyboard endpoint"`
	Check  cmd.Check         `cmd:"" help:"Parse scripts and resolve every key without typing"`
	Keys   cmd.Keys          `cmd:"" help:"List key and modifier names"`
	Gadget cmd.GadgetCommand `cmd:"" help:"Manage the Linux USB keyboard gadget"`
	Cfg    cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
