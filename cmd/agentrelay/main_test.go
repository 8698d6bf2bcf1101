package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
runner:
  default_agent: Triage
providers:
  - name: canned
    kind: mock
    reply: "We will look into it."
agents:
  - name: Triage
    provider: canned
    tools: [current_time]
    handoffs:
      - target: Billing
  - name: Billing
    provider: canned
    tools: [remember, recall]
`

func writeConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agentrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level", "error"))

	err := cmd.Execute()

	return out.String(), err
}

func TestAgentsCmd(t *testing.T) {
	out, err := execute(t, "", "agents", "--config", writeConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "AGENT")
	assert.Contains(t, out, "Triage")
	assert.Contains(t, out, "current_time,transfer_to_billing_agent")
	assert.Contains(t, out, "remember,recall")
}

func TestRunCmd(t *testing.T) {
	out, err := execute(t, "", "run", "--config", writeConfig(t), "my", "card", "was", "charged")
	require.NoError(t, err)
	assert.Equal(t, "We will look into it.\n", out)
}

func TestRunCmd_JSON(t *testing.T) {
	out, err := execute(t, "", "run", "--config", writeConfig(t), "--json", "--agent", "Billing", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, `"agent": "Billing"`)
	assert.Contains(t, out, `"success": true`)
}

func TestRunCmd_UnknownAgent(t *testing.T) {
	_, err := execute(t, "", "run", "--config", writeConfig(t), "--agent", "Nobody", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nobody")
}

func TestRunCmd_MissingConfig(t *testing.T) {
	_, err := execute(t, "", "run", "--config", filepath.Join(t.TempDir(), "none.yaml"), "hello")
	require.Error(t, err)
}

func TestChatCmd(t *testing.T) {
	out, err := execute(t, "hello\n\n/reset\nagain\n/exit\n", "chat", "--config", writeConfig(t), "--session", "s1")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "Triage: We will look into it."))
	assert.Contains(t, out, "session cleared")
}

func TestChatCmd_SQLiteStore(t *testing.T) {
	cfg := writeConfig(t)
	dsn := filepath.Join(t.TempDir(), "sessions.db")

	_, err := execute(t, "hello\n", "chat", "--config", cfg, "--store", "sqlite", "--dsn", dsn, "--session", "s2")
	require.NoError(t, err)

	out, err := execute(t, "again\n", "chat", "--config", cfg, "--store", "sqlite", "--dsn", dsn, "--session", "s2")
	require.NoError(t, err)
	assert.Contains(t, out, "Triage: We will look into it.")

	_, err = os.Stat(dsn)
	require.NoError(t, err)
}

func TestChatCmd_UnknownStore(t *testing.T) {
	_, err := execute(t, "", "chat", "--config", writeConfig(t), "--store", "etcd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}
