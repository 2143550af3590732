package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TrevorS/abstraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abstract.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Len(t, cfg.Stages, 4)
	assert.Equal(t, abstraction.DefaultEpsilon, cfg.Clustering.Epsilon)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
workers: 3
seed: 99
log:
  level: debug
  format: json
output:
  table: /tmp/table.dat
clustering:
  clusters: 16
  metric: emd
  init: plusplus
  limit: 5000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/table.dat", cfg.Output.Table)
	assert.Equal(t, "abstraction.db", cfg.Output.Database, "untouched fields keep defaults")
	assert.Equal(t, 16, cfg.Clustering.Clusters)
	assert.Equal(t, uint64(5000), cfg.Clustering.Limit)
	assert.Equal(t, 50, cfg.Clustering.Bins)

	km, err := cfg.KMeans()
	require.NoError(t, err)
	assert.Equal(t, abstraction.EMDMetric{}, km.Metric)
	assert.Equal(t, 16, km.Clusters)
	assert.Equal(t, 3, km.Workers)
}

func TestLoad_CustomStages(t *testing.T) {
	path := writeFile(t, `
stages:
  - name: preflop
    cards: [2]
    round: 0
    std_err: 0.005
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Stages, 1)
	stages := cfg.EHSStages()
	assert.Equal(t, "preflop", stages[0].Name)
	assert.Equal(t, 0.005, stages[0].MaxStdErr)
	n, err := stages[0].Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(169), n)
}

func TestLoad_StageIndexing(t *testing.T) {
	path := writeFile(t, `
stages:
  - name: preflop
    cards: [2]
    round: 0
    indexing: combinatorial
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	n, err := cfg.EHSStages()[0].Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(1326), n)
}

func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"bad metric":     "clustering:\n  metric: cosine\n",
		"bad init":       "clustering:\n  init: farthest\n",
		"bad format":     "log:\n  format: xml\n",
		"bad level":      "log:\n  level: loud\n",
		"bad stage":      "stages:\n  - name: x\n    cards: [3]\n",
		"bad indexing":   "stages:\n  - {name: x, cards: [2], indexing: lossy}\n",
		"duplicate":      "stages:\n  - {name: a, cards: [2]}\n  - {name: a, cards: [2]}\n",
		"no bins":        "clustering:\n  bins: 0\n",
		"negative":       "workers: -1\n",
		"malformed yaml": "workers: [\n",
	} {
		_, err := Load(writeFile(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
