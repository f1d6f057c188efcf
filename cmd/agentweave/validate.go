package main

import (
	"fmt"

	"github.com/hupe1980/agentweave/config"
)

// ValidateCmd loads a definition and builds its workflow without running it.
type ValidateCmd struct {
	File string `arg:"" help:"Workflow definition (YAML)." type:"existingfile"`
}

func (c *ValidateCmd) Run() error {
	f, err := config.Load(c.File)
	if err != nil {
		return err
	}

	wf, err := f.Build()
	if err != nil {
		return fmt.Errorf("invalid workflow %s: %w", f.Name, err)
	}

	fmt.Printf("%s: %s workflow with %d participant(s) is valid\n", f.Name, wf.Topology(), len(f.Participants))
	return nil
}
