package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want config failure", err)
	}
}

// TestRun_MissingSensor verifies run fails when the serial port cannot be opened.
func TestRun_MissingSensor(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
node:
  id: test-node
sensor:
  serial: "`+filepath.Join(dir, "no-such-tty")+`"
registry:
  path: "`+filepath.Join(dir, "templates.yaml")+`"
database:
  path: "`+filepath.Join(dir, "fp.db")+`"
  busy_timeout: 1
logging:
  level: error
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil {
		t.Fatal("run() should fail without a sensor")
	}
	if !strings.Contains(err.Error(), "opening sensor") {
		t.Errorf("run() error = %v, want sensor failure", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "fingerprintd dev") {
		t.Errorf("output = %q, want version line", out)
	}
}

func TestTemplatesCmd(t *testing.T) {
	dir := t.TempDir()
	registryPath := filepath.Join(dir, "templates.yaml")
	store := template.NewFileStore(registryPath)
	err := store.Save(context.Background(), []template.Record{
		{ID: 7, Label: "alice", Action: template.ActionUnlock, Time: 1767225600, Count: 3},
		{ID: 3, Label: "3", Action: template.ActionTimeout, Time: 1767225600},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	path := writeConfig(t, "registry:\n  path: \""+registryPath+"\"\n")

	out, err := execute(t, "templates", "--config", path)
	if err != nil {
		t.Fatalf("templates error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("output lines = %d, want header + 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "3 ") || !strings.Contains(lines[2], "alice") {
		t.Errorf("rows not sorted by slot:\n%s", out)
	}

	out, err = execute(t, "templates", "--config", path, "--json")
	if err != nil {
		t.Fatalf("templates --json error = %v", err)
	}
	if !strings.Contains(out, `"name": "alice"`) {
		t.Errorf("json output = %s", out)
	}
}

func TestHistoryCmd_Empty(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: \""+filepath.Join(dir, "fp.db")+"\"\n")

	out, err := execute(t, "history", "--config", path, "--kind", "unauthorized", "--slot", "-1")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "0 of 0 events") {
		t.Errorf("output = %q, want empty summary", out)
	}
}

func TestInfluxSink_NilClientIsNoop(t *testing.T) {
	sink := &influxSink{capacity: 200}

	// A nil client reports disconnected and drops every point.
	sink.ScanMatched(fingerprint.ScanEvent{Slot: 7, Action: template.ActionUnlock})
	sink.ScanRejected(fingerprint.ScanEvent{Slot: -1})
	sink.TemplatesUpdated([]template.Record{{ID: 7}})
	sink.AdminCompleted(fingerprint.AdminEvent{Op: fingerprint.ModeEmpty})
}

var _ fingerprint.EventSink = (*influxSink)(nil)
