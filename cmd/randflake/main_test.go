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

	"github.com/sxyafiq/randflake"
	"github.com/sxyafiq/randflake/checkpoint/sqlitestore"
)

// knownID is 5s after DefaultEpoch, machine 1, sequence 17.
const knownID = "20971524113"

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "randflake version "+version+"\n", out)
}

func TestGenerate(t *testing.T) {
	out, _, err := run(t, "generate", "--count", "5", "--machine", "42")
	require.NoError(t, err)

	ids := lines(out)
	require.Len(t, ids, 5)
	seen := map[string]bool{}
	for _, s := range ids {
		id, err := randflake.ParseString(s)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id.MachineID())
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func TestGenerate_Formats(t *testing.T) {
	for _, format := range []string{"base58", "base62", "hex", "binary"} {
		t.Run(format, func(t *testing.T) {
			out, _, err := run(t, "gen", "-n", "3", "-m", "9", "--format", format, "--batch")
			require.NoError(t, err)
			for _, s := range lines(out) {
				id, err := randflake.ParseFormat(s, format)
				require.NoError(t, err, s)
				assert.Equal(t, int64(9), id.MachineID())
			}
		})
	}
}

func TestGenerate_JSON(t *testing.T) {
	out, _, err := run(t, "generate", "--json", "--count", "4", "--machine", "7", "--sequence", "counter")
	require.NoError(t, err)

	var got struct {
		Count     int      `json:"count"`
		MachineID int64    `json:"machine_id"`
		Epoch     int64    `json:"epoch"`
		IDs       []idInfo `json:"ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Count)
	assert.Equal(t, int64(7), got.MachineID)
	assert.Equal(t, randflake.DefaultEpoch, got.Epoch)
	require.Len(t, got.IDs, 4)
	for _, info := range got.IDs {
		assert.Equal(t, int64(7), info.MachineID)
		assert.Equal(t, info.ID.Sequence(), info.Sequence)
		assert.Equal(t, info.ID.Base62(), info.Base62)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"machine too large", []string{"generate", "--machine", "1024"}, randflake.ErrInvalidMachineID},
		{"bad sequence", []string{"generate", "--sequence", "zigzag"}, randflake.ErrInvalidConfig},
		{"bad clock", []string{"generate", "--clock", "sundial"}, randflake.ErrInvalidConfig},
		{"bad dsn", []string{"generate", "--checkpoint", "etcd:localhost"}, randflake.ErrInvalidConfig},
		{"bad log level", []string{"generate", "--log-level", "loud"}, randflake.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	_, _, err := run(t, "generate", "--count", "0")
	assert.Error(t, err)
}

func TestGenerate_Checkpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.db")
	_, _, err := run(t, "generate", "--machine", "3", "--checkpoint", "sqlite:"+path, "--checkpoint-ahead", "10ms")
	require.NoError(t, err)

	store, err := sqlitestore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	cp, err := store.Load(context.Background(), 3)
	require.NoError(t, err)
	assert.NotEmpty(t, cp.Incarnation)

	// A second run restores the mark and still mints.
	_, _, err = run(t, "generate", "--machine", "3", "--checkpoint", "sqlite:"+path, "--checkpoint-ahead", "10ms")
	require.NoError(t, err)
}

func TestGenerate_ConfigFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "randflake.yaml")
	require.NoError(t, os.WriteFile(file, []byte("machineId: 99\nsequence: counter\n"), 0o644))

	out, _, err := run(t, "--config", file, "generate")
	require.NoError(t, err)
	id, err := randflake.ParseString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(99), id.MachineID())
	assert.Equal(t, int64(0), id.Sequence())

	t.Setenv("RANDFLAKE_MACHINE_ID", "100")
	out, _, err = run(t, "--config", file, "generate")
	require.NoError(t, err)
	id, err = randflake.ParseString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(100), id.MachineID(), "env overrides file")

	out, _, err = run(t, "--config", file, "generate", "--machine", "101")
	require.NoError(t, err)
	id, err = randflake.ParseString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(101), id.MachineID(), "flag overrides env")

	_, _, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "generate")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerate_UnparseableEnvMachineID(t *testing.T) {
	file := filepath.Join(t.TempDir(), "randflake.yaml")
	require.NoError(t, os.WriteFile(file, []byte("machineId: 7\n"), 0o644))

	t.Setenv("RANDFLAKE_MACHINE_ID", "12 ")
	out, _, err := run(t, "--config", file, "generate")
	require.ErrorIs(t, err, randflake.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "RANDFLAKE_MACHINE_ID")
	assert.Empty(t, out, "no ID minted with a fallback machine id")

	_, _, err = run(t, "parse", knownID)
	assert.ErrorIs(t, err, randflake.ErrInvalidConfig)
}

func TestParse(t *testing.T) {
	out, _, err := run(t, "parse", knownID)
	require.NoError(t, err)
	assert.Contains(t, out, "2020-01-01T00:00:05Z (1577836805000 ms since Unix epoch)")
	assert.Contains(t, out, "Machine ID: 1\n")
	assert.Contains(t, out, "Sequence:   17\n")
	assert.Contains(t, out, "Hex:        4e2001011\n")
}

func TestParse_JSONAndFormats(t *testing.T) {
	tests := []struct {
		in     string
		format string
	}{
		{knownID, ""},
		{"xXbxtX", "base58"},
		{"mTgnqV", "base62"},
		{"4e2001011", "hex"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			args := []string{"parse", "--json", tt.in}
			if tt.format != "" {
				args = append(args, "--format", tt.format)
			}
			out, _, err := run(t, args...)
			require.NoError(t, err)

			var info idInfo
			require.NoError(t, json.Unmarshal([]byte(out), &info))
			assert.Equal(t, knownID, info.ID.String())
			assert.Equal(t, randflake.DefaultEpoch+5000, info.Timestamp)
			assert.Equal(t, int64(1), info.MachineID)
			assert.Equal(t, int64(17), info.Sequence)
		})
	}
}

func TestParse_Epoch(t *testing.T) {
	out, _, err := run(t, "parse", "--json", "--epoch", "0", knownID)
	require.NoError(t, err)
	var info idInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, int64(5000), info.Timestamp)
}

func TestParse_Invalid(t *testing.T) {
	_, _, err := run(t, "parse", "not!an!id")
	assert.Error(t, err)

	_, _, err = run(t, "parse", "--format", "hex", "xyz")
	assert.ErrorIs(t, err, randflake.ErrInvalidHex)

	_, _, err = run(t, "parse")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	tests := map[string]string{
		"hex":     "4e2001011",
		"base62":  "mTgnqV",
		"b58":     "xXbxtX",
		"decimal": knownID,
	}
	for format, want := range tests {
		out, _, err := run(t, "encode", knownID, format)
		require.NoError(t, err, format)
		assert.Equal(t, want+"\n", out, format)
	}
}

func TestBench(t *testing.T) {
	out, _, err := run(t, "bench", "--duration", "20ms", "--batch", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Single ID generation:")
	assert.Contains(t, out, "2. Batch generation (batch size: 50):")
	assert.Contains(t, out, "Exhausted milliseconds:")
}
