package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewParser(t *testing.T) {
	parser := NewParser(4)

	assert.NotNil(t, parser)
	assert.Equal(t, 4, parser.concurrency)
	assert.NotNil(t, parser.cache)
	assert.Empty(t, parser.cache)

	assert.Equal(t, 1, NewParser(0).concurrency)
}

func TestParserParseFileValidJSONL(t *testing.T) {
	parser := NewParser(1)
	content := `{"group_id":1,"sub_group_id":null,"created_at":"2023-01-01 00:00:00 UTC","actual_created_at":null,"mpa":10,"table_name":"group_plans"}
{"group_id":1,"subgroup_id":5,"effective_time":"2023-01-01T00:00:00Z","visibility_time":"2023-01-01T01:00:00Z","value":"4","entity_kind":"SUBGROUP"}`
	path := writeFile(t, t.TempDir(), "events.jsonl", content)

	rows, err := parser.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0].GroupID)
	assert.Nil(t, rows[0].SubgroupID)
	assert.Equal(t, "group_plans", rows[0].Kind)
	assert.Equal(t, 10.0, rows[0].Value.Value)

	require.NotNil(t, rows[1].SubgroupID)
	assert.Equal(t, int64(5), *rows[1].SubgroupID)
	require.NotNil(t, rows[1].VisibilityTime)
	assert.Equal(t, "2023-01-01T01:00:00Z", *rows[1].VisibilityTime)
	assert.Equal(t, 4.0, rows[1].Value.Value)
	assert.Equal(t, "SUBGROUP", rows[1].Kind)
}

func TestParserParseFileInvalidJSON(t *testing.T) {
	parser := NewParser(1)
	content := `{"group_id":1,"created_at":"2023-01-01T00:00:00Z","mpa":1,"table_name":"group_plans"}
invalid json line here

{"group_id":1,"created_at":"2023-01-01T01:00:00Z","mpa":2,"table_name":"group_plans"}
{incomplete json`
	path := writeFile(t, t.TempDir(), "mixed.jsonl", content)

	rows, err := parser.ParseFile(path)
	require.NoError(t, err, "Parser should skip invalid lines and continue")
	require.Len(t, rows, 2)
	assert.Equal(t, "2023-01-01T00:00:00Z", rows[0].EffectiveTime)
	assert.Equal(t, "2023-01-01T01:00:00Z", rows[1].EffectiveTime)
}

func TestParserParseFileEmptyFile(t *testing.T) {
	parser := NewParser(1)
	path := writeFile(t, t.TempDir(), "empty.jsonl", "")

	rows, err := parser.ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParserParseFileMissing(t *testing.T) {
	parser := NewParser(1)
	_, err := parser.ParseFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestParserCacheInvalidatedOnChange(t *testing.T) {
	parser := NewParser(1)
	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl", `{"group_id":1,"created_at":"2023-01-01T00:00:00Z","mpa":1,"table_name":"group_plans"}`)

	rows, err := parser.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	again, err := parser.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, rows, again)

	writeFile(t, dir, "events.jsonl", `{"group_id":1,"created_at":"2023-01-01T00:00:00Z","mpa":1,"table_name":"group_plans"}
{"group_id":1,"created_at":"2023-01-01T02:00:00Z","mpa":3,"table_name":"group_plans"}`)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	rows, err = parser.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParserParseFiles(t *testing.T) {
	parser := NewParser(3)
	dir := t.TempDir()

	var files []string
	for i := 0; i < 5; i++ {
		line := fmt.Sprintf(`{"group_id":%d,"created_at":"2023-01-01T00:00:00Z","mpa":%d,"table_name":"group_plans"}`, i, i)
		files = append(files, writeFile(t, dir, fmt.Sprintf("f%d.jsonl", i), line))
	}
	files = append(files, filepath.Join(dir, "missing.jsonl"))

	seen := 0
	failed := 0
	for result := range parser.ParseFiles(files) {
		seen++
		if result.Error != nil {
			failed++
			assert.True(t, strings.HasSuffix(result.File, "missing.jsonl"))
			continue
		}
		assert.Len(t, result.Rows, 1)
	}
	assert.Equal(t, 6, seen)
	assert.Equal(t, 1, failed)
}

func TestParserParseAllKeepsFileOrder(t *testing.T) {
	parser := NewParser(4)
	dir := t.TempDir()

	var files []string
	for i := 0; i < 8; i++ {
		line := fmt.Sprintf(`{"group_id":1,"created_at":"2023-01-01T%02d:00:00Z","mpa":%d,"table_name":"group_plans"}`, i, i)
		files = append(files, writeFile(t, dir, fmt.Sprintf("f%d.jsonl", i), line))
	}

	rows, err := parser.ParseAll(files)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	for i, row := range rows {
		assert.Equal(t, float64(i), row.Value.Value)
	}

	_, err = parser.ParseAll(append(files, filepath.Join(dir, "missing.jsonl")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing.jsonl")
}

func TestGroupRows(t *testing.T) {
	sub := int64(5)
	rows := []model.EventRow{
		{GroupID: 2, EffectiveTime: "a", Kind: "group"},
		{GroupID: 1, EffectiveTime: "b", Kind: "group"},
		{GroupID: 2, SubgroupID: &sub, EffectiveTime: "c", Kind: "subgroup"},
		{GroupID: 3, EffectiveTime: "d", Kind: "group"},
	}

	groups := GroupRows(rows, nil)
	require.Len(t, groups, 3)
	assert.Equal(t, int64(1), groups[0].GroupID)
	assert.Equal(t, int64(2), groups[1].GroupID)
	assert.Equal(t, []string{"a", "c"}, groups[1].Columns.EffectiveTimes)
	assert.Equal(t, []*int64{nil, &sub}, groups[1].Columns.SubgroupIDs)

	n, err := groups[1].Columns.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	filtered := GroupRows(rows, []int64{3, 9})
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(3), filtered[0].GroupID)

	assert.Empty(t, GroupRows(nil, nil))
}
