package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)
	data := map[string]any{"final_tier": "draft", "total_cost": 0.002}

	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["final_tier"] != "draft" {
		t.Errorf("round trip lost data: %v", decoded)
	}
}

func TestTextFormatterFallback(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("yaml")
	if _, ok := f.(*TextFormatter); !ok {
		t.Fatalf("unknown format should fall back to text, got %T", f)
	}
	if err := f.FormatTo(&buf, "done"); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if buf.String() != "done\n" {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	inner := errors.New("backend unreachable")
	err := NewCommandError("run", inner)
	if !errors.Is(err, inner) {
		t.Error("CommandError does not unwrap to the inner error")
	}
	if !strings.Contains(err.Error(), "run") {
		t.Errorf("error text missing command name: %v", err)
	}
}

func TestConfigErrorFieldOptional(t *testing.T) {
	with := NewConfigError("tiers[0].backend", "unknown backend")
	if !strings.Contains(with.Error(), "tiers[0].backend") {
		t.Errorf("field missing from message: %v", with)
	}
	without := NewConfigError("", "file unreadable")
	if strings.Contains(without.Error(), "in ") {
		t.Errorf("empty field should not render a location: %v", without)
	}
}

func TestProgressRendersRatio(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)
	p.Start(10)
	p.Update(5)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "(5/10)") {
		t.Errorf("midpoint ratio not rendered:\n%s", out)
	}
	if !strings.Contains(out, "100.0%") {
		t.Errorf("finish did not render completion:\n%s", out)
	}
}
