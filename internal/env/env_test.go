package env

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestMergePrecedence(t *testing.T) {
	t.Setenv("LAUNCHR_ENV_TEST_BASE", "os")
	t.Setenv("LAUNCHR_ENV_TEST_OVERRIDE", "os")

	e := New().
		WithSet("LAUNCHR_ENV_TEST_OVERRIDE", "overlay").
		WithSet("LAUNCHR_ENV_TEST_GLOBAL", "overlay")
	out := e.Merge([]string{"LAUNCHR_ENV_TEST_GLOBAL=proc", "LAUNCHR_ENV_TEST_PROC=proc"})

	want := map[string]string{
		"LAUNCHR_ENV_TEST_BASE":     "os",
		"LAUNCHR_ENV_TEST_OVERRIDE": "overlay",
		"LAUNCHR_ENV_TEST_GLOBAL":   "proc",
		"LAUNCHR_ENV_TEST_PROC":     "proc",
	}
	for k, v := range want {
		if !slices.Contains(out, k+"="+v) {
			t.Fatalf("missing %s=%s in merged env: %v", k, v, out)
		}
	}
}

func TestIsolateDropsOSEnv(t *testing.T) {
	t.Setenv("LAUNCHR_ENV_TEST_SECRET", "leak")
	e := New()
	e.Isolate()
	out := e.WithSet("KEEP", "1").Merge(nil)
	if slices.Contains(out, "LAUNCHR_ENV_TEST_SECRET=leak") {
		t.Fatalf("isolated env leaked OS variable: %v", out)
	}
	if !slices.Contains(out, "KEEP=1") {
		t.Fatalf("overlay missing after Isolate: %v", out)
	}
}

func TestWithSetDoesNotMutateReceiver(t *testing.T) {
	e := New()
	e.Isolate()
	a := e.WithSet("A", "1")
	b := a.WithSet("A", "2")
	if got := a.Merge(nil); !slices.Contains(got, "A=1") {
		t.Fatalf("receiver mutated by WithSet: %v", got)
	}
	if got := b.Merge(nil); !slices.Contains(got, "A=2") {
		t.Fatalf("derived env missing override: %v", got)
	}
}

func TestMergeExpandsPlaceholders(t *testing.T) {
	e := New()
	e.Isolate()
	e = e.WithSet("ROOT", "/srv/app")
	out := e.Merge([]string{"DATA=${ROOT}/data"})
	if !slices.Contains(out, "DATA=/srv/app/data") {
		t.Fatalf("placeholder not expanded: %v", out)
	}
}

func TestMergeSkipsMalformedPairs(t *testing.T) {
	e := New()
	e.Isolate()
	out := e.Merge([]string{"novalue", "=empty", "OK=1"})
	if len(out) != 1 || out[0] != "OK=1" {
		t.Fatalf("expected only OK=1, got %v", out)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "app.env")
	content := "# comment\nA=1\n\n  B = two \nbadline\n=nokey\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	pairs, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := []string{"A=1", "B=two"}
	if !slices.Equal(pairs, want) {
		t.Fatalf("got %v want %v", pairs, want)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
