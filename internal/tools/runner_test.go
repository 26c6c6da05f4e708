package tools

import (
	"bytes"
	"testing"
)

func TestExecRunnerCapturesOutputAndExit(t *testing.T) {
	stdout, _, code, err := ExecRunner{}.Run("sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 || string(bytes.TrimSpace(stdout)) != "hello" {
		t.Fatalf("unexpected result: code=%d stdout=%q", code, stdout)
	}
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	_, _, code, err := ExecRunner{}.Run("sh", "-c", "exit 3")
	if err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
	if code != 3 {
		t.Fatalf("unexpected exit code: %d", code)
	}
}

func TestExecRunnerMissingCommand(t *testing.T) {
	_, _, code, err := ExecRunner{}.Run("definitely-not-a-command-nixrm")
	if err == nil {
		t.Fatalf("expected error for missing command")
	}
	if code != 127 {
		t.Fatalf("unexpected exit code: %d", code)
	}
}

func TestExecRunnerStreaming(t *testing.T) {
	var out bytes.Buffer
	if err := (ExecRunner{}).RunStreaming("sh", []string{"-c", "echo streamed"}, &out, nil); err != nil {
		t.Fatalf("run streaming: %v", err)
	}
	if string(bytes.TrimSpace(out.Bytes())) != "streamed" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
