package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "GCC", cfg.Method)
	assert.Equal(t, 1.0, cfg.Amount)
	assert.Equal(t, 0.10, cfg.Cutoff)
	assert.Equal(t, 10000, cfg.MaxCalc)
	assert.Equal(t, []int64{DefaultElectricityActivity}, cfg.Scope2Activities)
	assert.Equal(t, 30*time.Second, cfg.SPARQLTimeout)
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
database: inventory.db
method: IPCC
amount: 100
cutoff: 0.05
scope2Activities: [53, 54]
logFormat: json
sparqlTimeout: 5s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scope.yaml"), data, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "inventory.db", cfg.Database)
	assert.Equal(t, "IPCC", cfg.Method)
	assert.Equal(t, 100.0, cfg.Amount)
	assert.Equal(t, 0.05, cfg.Cutoff)
	assert.Equal(t, []int64{53, 54}, cfg.Scope2Activities)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.SPARQLTimeout)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"cutoff above one", "cutoff: 1.5"},
		{"negative cutoff", "cutoff: -0.1"},
		{"negative amount", "amount: -3"},
		{"bad log format", "logFormat: xml"},
		{"not yaml", "cutoff: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParse_EmptyScope2ListIsKept(t *testing.T) {
	cfg, err := Parse([]byte("scope2Activities: []"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Scope2Activities)
}

func TestLoad_UnreadableFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "scope.yml"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scope.yaml"), []byte("method: IPCC\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope.yml")
}
