package main

import (
	"fmt"
	"os"

	"github.com/loykin/launchr/pkg/template"
)

// Init writes a starter config file for a common stack shape.
func (c command) Init(f InitFlags) error {
	kind := f.Template
	if kind == "" {
		kind = "stack"
	}
	name := f.Name
	if name == "" {
		name = kind + "-sample"
	}
	out := f.Output
	if out == "" {
		out = "launchr.toml"
	}

	if _, err := os.Stat(out); err == nil && !f.Force {
		return fmt.Errorf("config file '%s' already exists (use --force to overwrite)", out)
	}

	data, err := template.NewGenerator().GenerateTOML(template.Kind(kind), name)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("wrote %s (%s)\n", out, kind)
	fmt.Printf("start the stack with: launchr up --config %s\n", out)
	return nil
}
