package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "debug", "")
	defer Configure(&bytes.Buffer{}, "info", "")

	Component("registry").WithField("model", "risk").Debug("saved")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "registry" || entry["model"] != "risk" || entry["msg"] != "saved" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestConfigureUnknownLevel(t *testing.T) {
	Configure(&bytes.Buffer{}, "chatty", "text")
	if Log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %v", Log.GetLevel())
	}
}
