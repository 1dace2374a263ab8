package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "amortisation")
	assert.Contains(t, out, "finanzierung")

	out, err = execute(t, "list", "--category", "steuern")
	require.NoError(t, err)
	assert.NotContains(t, out, "amortisation")
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "amortisation", "--set", "investition=100000", "--set", "jaehrlicher_gewinn=8000")
	require.NoError(t, err)
	assert.Contains(t, out, "jahre")
	assert.Contains(t, out, "12.5")
	assert.Contains(t, out, "8.00")
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, "run", "amortisation", "-s", "investition=100000", "-s", "jaehrlicher_gewinn=8000", "--json")
	require.NoError(t, err)

	var outcome struct {
		ToolID string                 `json:"toolId"`
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, "amortisation", outcome.ToolID)
	assert.Equal(t, 12.5, outcome.Result["jahre"])
}

func TestRun_InputFileWithOverride(t *testing.T) {
	path := writeJSON(t, map[string]interface{}{"investition": 100000, "jaehrlicher_gewinn": 1})
	out, err := execute(t, "run", "amortisation", "--input", path, "--set", "jaehrlicher_gewinn=8000")
	require.NoError(t, err)
	assert.Contains(t, out, "12.5")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown tool", []string{"run", "gibtsnicht"}},
		{"missing fields", []string{"run", "amortisation"}},
		{"malformed set", []string{"run", "amortisation", "--set", "investition"}},
		{"missing tool", []string{"run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseSets(t *testing.T) {
	values, err := parseSets([]string{"a=1", " b = zwei ", "c="})
	require.NoError(t, err)
	assert.Equal(t, "1", values["a"])
	assert.Equal(t, "zwei", values["b"])
	assert.Equal(t, "", values["c"])

	_, err = parseSets([]string{"=1"})
	assert.Error(t, err)
}

func TestWizard_List(t *testing.T) {
	out, err := execute(t, "wizard")
	require.NoError(t, err)
	for _, id := range []string{"mietvertrag", "kuendigung", "uebergabeprotokoll", "selbstauskunft"} {
		assert.Contains(t, out, id)
	}
}

func TestWizard_Steps(t *testing.T) {
	out, err := execute(t, "wizard", "kuendigung")
	require.NoError(t, err)
	assert.Contains(t, out, "Absender und Empfänger")
	assert.Contains(t, out, "kuendigungsdatum")

	_, err = execute(t, "wizard", "unbekannt")
	assert.Error(t, err)
}

func TestWizard_CheckInput(t *testing.T) {
	complete := map[string]interface{}{
		"absender_name":      "Anna Schmidt",
		"absender_adresse":   "Hauptstr. 1, 10115 Berlin",
		"empfaenger_name":    "Bernd Meier",
		"empfaenger_adresse": "Ringstr. 5, 10117 Berlin",
		"kuendigungsart":     "ordentlich",
		"mietobjekt_adresse": "Hauptstr. 1, 10115 Berlin",
		"kuendigungsdatum":   "2026-12-31",
		"ort":                "Berlin",
		"datum":              "2026-10-01",
	}
	out, err := execute(t, "wizard", "kuendigung", "--input", writeJSON(t, complete))
	require.NoError(t, err)
	assert.Contains(t, out, "Formulardaten vollständig")

	delete(complete, "ort")
	_, err = execute(t, "wizard", "kuendigung", "--input", writeJSON(t, complete))
	assert.Error(t, err)
}
