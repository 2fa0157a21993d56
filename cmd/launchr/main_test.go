package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHelpExitsZero(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help should succeed: %v", err)
	}
	if !strings.Contains(out.String(), "launchr") {
		t.Fatalf("unexpected help output: %s", out.String())
	}
	for _, sub := range []string{"up", "validate", "status", "history", "init", "version"} {
		if !strings.Contains(out.String(), sub) {
			t.Fatalf("help should list %s subcommand: %s", sub, out.String())
		}
	}
}

func TestUnknownSubcommandFails(t *testing.T) {
	root := buildRoot()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"frobnicate"})
	if err := root.Execute(); err == nil {
		t.Fatalf("unknown subcommand should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	root := buildRoot()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version should succeed: %v", err)
	}
}

func TestUpThroughCobraPropagatesConfigExit(t *testing.T) {
	root := buildRoot()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"up", "--config", "/definitely/absent.toml"})
	err := root.Execute()
	var ee *exitCodeError
	if !errors.As(err, &ee) || ee.code != exitConfig {
		t.Fatalf("expected config exit code through cobra, got %v", err)
	}
}

func TestExitCodeErrorMessage(t *testing.T) {
	withErr := &exitCodeError{code: 2, err: errors.New("bad config")}
	if withErr.Error() != "bad config" {
		t.Fatalf("unexpected message: %s", withErr.Error())
	}
	silent := &exitCodeError{code: 1}
	if !strings.Contains(silent.Error(), "1") {
		t.Fatalf("unexpected message: %s", silent.Error())
	}
	if !errors.Is(withErr, withErr.err) {
		t.Fatalf("Unwrap should expose the inner error")
	}
}
