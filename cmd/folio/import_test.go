package main

import (
	"strings"
	"testing"
)

func TestImportGitHub_RequiresOwner(t *testing.T) {
	cfgPath := writeConfig(t, "")
	_, err := run(t, "", "import", "github", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "no owner") {
		t.Errorf("err = %v", err)
	}
}

func TestImportGitHub_Help(t *testing.T) {
	out, err := run(t, "", "import", "github", "--help")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "--owner") {
		t.Errorf("expected help to mention '--owner', got: %s", out)
	}
}
