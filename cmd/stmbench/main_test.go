package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lleo/go-persistent/codec"
)

func TestRunWritesSnapshot(t *testing.T) {
	var dir = t.TempDir()
	var snapshot = filepath.Join(dir, "balances.cbor")
	var config = filepath.Join(dir, "stm.yaml")
	require.NoError(t, os.WriteFile(config, []byte("max_retries: 0\nbackoff_base: 1us\n"), 0o644))

	require.NoError(t, run([]string{
		"--workers", "4", "--accounts", "5", "--transfers", "200",
		"--bulk", "500", "--config", config, "--snapshot", snapshot,
	}))

	var data, err = os.ReadFile(snapshot)
	require.NoError(t, err)
	m, err := codec.DecodeMap(data)
	require.NoError(t, err)
	require.Equal(t, 5, m.Count())

	var total int64
	for _, v := range m.All() {
		total += v.(int64)
	}
	assert.Equal(t, int64(5*initialBalance), total)
}

func TestRunRejectsBadFlags(t *testing.T) {
	assert.Error(t, run([]string{"--accounts", "1"}))
	assert.Error(t, run([]string{"--no-such-flag"}))
	assert.Error(t, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
}

func TestBulkBuildAgrees(t *testing.T) {
	var _, _, err = bulkBuild(3000)
	require.NoError(t, err)
}
