package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validJourney = `package journeys

journey: smoke: {
	actions: [
		{name: "ping", method: "GET", path: "/health"},
	]
	invariants: [
		{name: "queue_bounded", severity: "medium", message: "queue too deep", system: "jobs", kind: "at_most", path: "depth_count", value: 100},
	]
}
`

func TestLoadConfig_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", `
api:
  base_url: http://localhost:8080
journeys: ./journeys
systems:
  - name: db
    type: sqlite
    path: ./app.db
    tables: [users]
  - name: jobs
    type: queue
exploration:
  strategy: bfs
  max_steps: 200
  coverage_target: 90
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	require.Len(t, cfg.Systems, 2)
	assert.Equal(t, "bfs", cfg.strategyName())
	assert.True(t, cfg.shrinkEnabled())
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing base url",
			yaml: "journeys: ./j\nsystems: [{name: db, type: kv}]\n",
			want: "api.base_url",
		},
		{
			name: "no systems",
			yaml: "api: {base_url: http://x}\njourneys: ./j\n",
			want: "at least one system",
		},
		{
			name: "unknown system type",
			yaml: "api: {base_url: http://x}\njourneys: ./j\nsystems: [{name: db, type: mongo}]\n",
			want: "unknown type",
		},
		{
			name: "sqlite without tables",
			yaml: "api: {base_url: http://x}\njourneys: ./j\nsystems: [{name: db, type: sqlite, path: ./a.db}]\n",
			want: "need tables",
		},
		{
			name: "duplicate system names",
			yaml: "api: {base_url: http://x}\njourneys: ./j\nsystems: [{name: db, type: kv}, {name: db, type: queue}]\n",
			want: "duplicate name",
		},
		{
			name: "unknown strategy",
			yaml: "api: {base_url: http://x}\njourneys: ./j\nsystems: [{name: db, type: kv}]\nexploration: {strategy: astar}\n",
			want: "unknown strategy",
		},
		{
			name: "unknown field",
			yaml: "api: {base_url: http://x}\njourneys: ./j\nsystems: [{name: db, type: kv}]\nexplorations: {}\n",
			want: "field explorations not found",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "run.yaml", tc.yaml)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRootCommand_RejectsBadFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"version", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVersionCommand_Text(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "wander")
}

func TestVersionCommand_JSON(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"version", "--format", "json"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateCommand_ValidJourneys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "smoke.cue", validJourney)

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "OK: 1 journey(s)")
	assert.Contains(t, out.String(), "smoke")
}

func TestValidateCommand_MissingDirectoryExitsWithFailure(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "INVALID")
}

func TestExploreCommand_BadConfigIsCommandError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.yaml", "api: {base_url: http://x}\n")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"explore", "--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBuildSystem_InMemoryTypes(t *testing.T) {
	for _, typ := range []string{"kv", "queue", "mailbox", "clock"} {
		t.Run(typ, func(t *testing.T) {
			sys, closer, err := buildSystem(SystemConfig{Name: "s", Type: typ})
			require.NoError(t, err)
			require.NotNil(t, sys)
			assert.Nil(t, closer)
		})
	}
}

func TestBuildSystem_ClockRejectsBadStart(t *testing.T) {
	_, _, err := buildSystem(SystemConfig{Name: "clk", Type: "clock", Start: "yesterday"})
	require.Error(t, err)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
