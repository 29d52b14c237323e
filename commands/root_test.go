package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/data/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const events = `{"group_id":1,"created_at":"2023-01-01T00:00:00Z","mpa":10,"table_name":"group_plans"}
{"group_id":1,"sub_group_id":5,"created_at":"2023-01-01T00:00:00Z","actual_created_at":"2023-01-01T00:00:00Z","mpa":4,"table_name":"sub_groups"}
{"group_id":2,"created_at":"2023-01-01T05:00:00Z","mpa":3,"table_name":"group_plans"}
`

// setupEnv points logs and cache into temporary directories and returns a
// data directory holding one event file.
func setupEnv(t *testing.T) (dataDir, cacheDir string) {
	t.Helper()
	tmp := t.TempDir()
	cacheDir = filepath.Join(tmp, "cache")
	t.Setenv("ALLOC_LOG_FILE", filepath.Join(tmp, "logs", "app.log"))
	t.Setenv("ALLOC_CACHE_DIR", cacheDir)

	dataDir = filepath.Join(tmp, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "events.jsonl"), []byte(events), 0644))
	return dataDir, cacheDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmdJSONOutput(t *testing.T) {
	dataDir, _ := setupEnv(t)

	out, err := execute(t, "--dir", dataDir, "-o", "json")
	require.NoError(t, err)

	var records []model.OutputRecord
	require.NoError(t, sonic.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	assert.Equal(t, int64(1), records[0].GroupID)
	assert.Equal(t, int64(6), records[0].GroupUsersValue)
	assert.Equal(t, int64(2), records[2].GroupID)
}

func TestRootCmdEnvDefaultsAndFlagOverride(t *testing.T) {
	dataDir, _ := setupEnv(t)
	t.Setenv("ALLOC_DATA_DIR", dataDir)
	t.Setenv("ALLOC_OUTPUT", "csv")

	out, err := execute(t)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hour,group_id,subgroup_id"), out)

	out, err = execute(t, "--output", "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "["), out)
}

func TestRootCmdGroupFilter(t *testing.T) {
	dataDir, _ := setupEnv(t)

	out, err := execute(t, "--dir", dataDir, "-o", "csv", "--group", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2023-01-01T05:00:00Z,2,,,3,3", lines[1])
}

func TestRootCmdSubgroupMode(t *testing.T) {
	dataDir, _ := setupEnv(t)

	_, err := execute(t, "--dir", dataDir, "--subgroup-mode", "min")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subgroup_output_mode")

	_, err = execute(t, "--dir", dataDir, "--subgroup-mode", "max", "-o", "summary")
	assert.NoError(t, err)
}

func TestRootCmdInvalidEnv(t *testing.T) {
	setupEnv(t)
	t.Setenv("ALLOC_FREEZE_STALE", "sometimes")

	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestRootCmdReset(t *testing.T) {
	dataDir, cacheDir := setupEnv(t)

	_, err := execute(t, "--dir", dataDir, "-o", "json")
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	require.NoError(t, clearCache(cacheDir))
	entries, err = os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = execute(t, "--dir", dataDir, "-o", "json", "--reset")
	require.NoError(t, err)
}

func TestRootCmdNoCache(t *testing.T) {
	dataDir, cacheDir := setupEnv(t)

	_, err := execute(t, "--dir", dataDir, "-o", "json", "--no-cache")
	require.NoError(t, err)
	assert.NoDirExists(t, cacheDir)
}

func TestWatchCmdFlags(t *testing.T) {
	setupEnv(t)
	cmd := NewRootCmd(&bytes.Buffer{})

	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)
	assert.Equal(t, "watch", watchCmd.Name())

	debounce := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounce)
	assert.Equal(t, (500 * time.Millisecond).String(), debounce.DefValue)
	assert.NotNil(t, watchCmd.InheritedFlags().Lookup("dir"))
}

func TestFreezeStaleFlag(t *testing.T) {
	setupEnv(t)
	cmd := NewRootCmd(&bytes.Buffer{})

	flag := cmd.PersistentFlags().Lookup("freeze-stale")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.Contains(t, flag.Usage, "no revision in the last year")
	assert.NotContains(t, flag.Usage, "sub-group")
}

func TestEnsureDir(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "test", "nested", "dir")

	require.NoError(t, ensureDir(testDir))
	info, err := os.Stat(testDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, ensureDir(testDir))
}

func TestClearCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	assert.NoError(t, clearCache(cacheDir), "missing cache directory is not an error")
	assert.NoDirExists(t, cacheDir)

	input := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(events), 0644))
	fileCache, err := cache.NewFileCache(cacheDir, nil)
	require.NoError(t, err)
	require.NoError(t, fileCache.Set(input, nil))

	otherFile := filepath.Join(cacheDir, "other.txt")
	require.NoError(t, os.WriteFile(otherFile, []byte("keep"), 0644))

	require.NoError(t, clearCache(cacheDir))
	assert.FileExists(t, otherFile)
	_, fileCount := fileCache.GetCacheStats()
	assert.Zero(t, fileCount)
}
