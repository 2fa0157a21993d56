package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "pids", "svc.pid")

	m := NewMeta("svc", os.Getpid())
	if err := WritePIDFile(pf, m); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}

	b, err := os.ReadFile(pf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	first, _, _ := strings.Cut(string(b), "\n")
	if strings.TrimSpace(first) == "" {
		t.Fatalf("pid line missing: %q", string(b))
	}

	got, err := ReadPIDFile(pf)
	if err != nil {
		t.Fatalf("ReadPIDFile: %v", err)
	}
	if got.Name != "svc" || got.PID != os.Getpid() {
		t.Fatalf("meta mismatch: %+v", got)
	}
	if runtime.GOOS == "linux" && got.StartUnix <= 0 {
		t.Fatalf("expected positive StartUnix on linux, got %d", got.StartUnix)
	}
}

func TestReadPIDFileLegacyFormat(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "legacy.pid")
	if err := os.WriteFile(pf, []byte("12345\n"), 0o600); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	m, err := ReadPIDFile(pf)
	if err != nil {
		t.Fatalf("ReadPIDFile legacy: %v", err)
	}
	if m.PID != 12345 || m.Name != "" || m.StartUnix != 0 {
		t.Fatalf("unexpected meta for legacy pidfile: %+v", m)
	}
}

func TestReadPIDFileBadPID(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(pf, []byte("not-a-pid\n{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPIDFile(pf); err == nil {
		t.Fatal("expected error for non-numeric pid line")
	}
}

func TestMetaAliveSelf(t *testing.T) {
	m := NewMeta("self", os.Getpid())
	if !m.Alive() {
		t.Fatal("own process should be alive")
	}
}

func TestMetaAliveDeadProcess(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("/bin/true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	m := Meta{Name: "gone", PID: cmd.Process.Pid}
	if m.Alive() {
		t.Fatalf("reaped pid %d should not be alive", m.PID)
	}
}

func TestMetaAliveRejectsReusedPID(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("start-time identity check is linux-only here")
	}
	// Same live PID but a start time that cannot match: the identity check
	// must treat it as a different process.
	m := Meta{Name: "stale", PID: os.Getpid(), StartUnix: 12345}
	if m.Alive() {
		t.Fatal("mismatched start time should not count as alive")
	}
}

func TestMetaAliveZeroPID(t *testing.T) {
	if (Meta{}).Alive() {
		t.Fatal("zero meta should never be alive")
	}
}

func TestRemovePIDFile(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "x.pid")
	if err := WritePIDFile(pf, Meta{Name: "x", PID: 1}); err != nil {
		t.Fatal(err)
	}
	RemovePIDFile(pf)
	if _, err := os.Stat(pf); !os.IsNotExist(err) {
		t.Fatalf("pidfile not removed: %v", err)
	}
	RemovePIDFile("") // no-op
}
