package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/server"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/config"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/validation"
)

// execute runs the CLI with args and returns what it printed
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const linearFlow = `
id: onboarding
name: Onboarding
nodes:
  - id: hello
    type: textMessage
    data: {text: Hello}
  - id: bye
    type: textMessage
    data: {text: Bye}
edges:
  - source: hello
    target: bye
`

const twoStarts = `{
  "id": "broken",
  "nodes": [
    {"id": "a", "type": "textMessage", "data": {"text": "one"}},
    {"id": "b", "type": "textMessage", "data": {"text": "two"}}
  ],
  "edges": []
}`

// detached has one start plus a two-node cycle no path reaches
const detached = `
id: detached
nodes:
  - {id: a, type: textMessage, data: {text: start}}
  - {id: c, type: textMessage, data: {text: loop one}}
  - {id: d, type: textMessage, data: {text: loop two}}
edges:
  - {source: c, target: d}
  - {source: d, target: c}
`

func TestVersion(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{"dev defaults", "dev", "unknown", "unknown", "chatflow dev (commit: unknown, built: unknown)\n"},
		{"release", "v1.0.0", "abc123", "2024-01-01", "chatflow v1.0.0 (commit: abc123, built: 2024-01-01)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldBuildTime := Version, Commit, BuildTime
			defer func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuildTime }()
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			out, err := execute(t, "version")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNodeTypes(t *testing.T) {
	out, err := execute(t, "node-types")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+len(flow.NodeTypes()))
	assert.True(t, strings.HasPrefix(lines[0], "TYPE"))
	assert.Contains(t, lines[1], string(flow.NodeTypeTextMessage))
	assert.Contains(t, lines[1], "text")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		args    []string
		wantErr error
		want    string
	}{
		{"valid yaml", "flow.yaml", linearFlow, nil, nil, validation.MessageFlowValid},
		{"two starts", "flow.json", twoStarts, nil, errInvalidFlow, validation.MessageMultipleStarts},
		{"lists unreached nodes", "flow.json", twoStarts, nil, errInvalidFlow, "a, b"},
		{"detached cycle passes by default", "flow.yml", detached, nil, nil, validation.MessageFlowValid},
		{"detached cycle fails strict", "flow.yml", detached, []string{"--strict"}, errInvalidFlow, "c, d"},
		{"format flag overrides extension", "flow.txt", linearFlow, []string{"--format", "yaml"}, nil, validation.MessageFlowValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			args := append([]string{"validate", path}, tt.args...)

			out, err := execute(t, args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestValidate_JSONOutput(t *testing.T) {
	path := writeFile(t, "flow.json", twoStarts)

	out, err := execute(t, "validate", "--json", path)
	assert.ErrorIs(t, err, errInvalidFlow)

	var verdict validation.Verdict
	require.NoError(t, json.Unmarshal([]byte(out), &verdict))
	assert.False(t, verdict.IsValid)
	assert.Equal(t, []string{"a", "b"}, verdict.Unreached)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		args    []string
		wantErr string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }, nil, "failed to read"},
		{"broken json", func(t *testing.T) string { return writeFile(t, "f.json", "{") }, nil, "failed to parse"},
		{"dangling edge", func(t *testing.T) string {
			return writeFile(t, "f.json", `{"id":"x","nodes":[{"id":"a","type":"textMessage","data":{"text":"hi"}}],"edges":[{"source":"a","target":"b"}]}`)
		}, nil, "malformed flow"},
		{"unknown format", func(t *testing.T) string { return writeFile(t, "f.json", twoStarts) }, []string{"--format", "xml"}, "unknown codec"},
		{"msgpack format", func(t *testing.T) string { return writeFile(t, "f.json", twoStarts) }, []string{"--format", "msgpack"}, "json or yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"validate", tt.path(t)}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.NotErrorIs(t, err, errInvalidFlow)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RequiresFile(t *testing.T) {
	_, err := execute(t, "validate")
	assert.Error(t, err)
}

func TestFlows(t *testing.T) {
	for _, k := range []string{config.ConfigFileEnv, "STORAGE_DRIVER", "FLOW_DIR", "SERIALIZATION_CODEC",
		"SERIALIZATION_COMPRESSION", "SERIALIZATION_KEY", "FLOW_ID", "REQUEST_TIMEOUT", "CHATFLOW_ADDR"} {
		t.Setenv(k, "")
	}
	t.Setenv("STORAGE_DRIVER", config.DriverFile)
	t.Setenv("FLOW_DIR", t.TempDir())
	t.Setenv("SERIALIZATION_CODEC", "json")
	t.Setenv("SERIALIZATION_COMPRESSION", "none")

	cfg, err := config.Load()
	require.NoError(t, err)
	repo, closeRepo, err := server.OpenRepository(context.Background(), cfg)
	require.NoError(t, err)
	defer closeRepo()

	snap, err := readFlowFile(writeFile(t, "flow.yaml", linearFlow), "")
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), snap)
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "flows", "list")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], "onboarding")
		assert.Contains(t, lines[1], "Onboarding")
	})

	t.Run("export yaml", func(t *testing.T) {
		out, err := execute(t, "flows", "export", "onboarding")
		require.NoError(t, err)
		assert.Contains(t, out, "id: onboarding")
		assert.Contains(t, out, "source: hello")
	})

	t.Run("export json", func(t *testing.T) {
		out, err := execute(t, "flows", "export", "onboarding", "--format", "json")
		require.NoError(t, err)
		var doc validation.FlowDocument
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Len(t, doc.Nodes, 2)
		assert.Len(t, doc.Edges, 1)
	})

	t.Run("export missing", func(t *testing.T) {
		_, err := execute(t, "flows", "export", "ghost")
		assert.ErrorIs(t, err, flow.ErrFlowNotFound)
	})
}
