package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSnapshot_AllFiles(t *testing.T) {
	dir := t.TempDir()
	paths := SnapshotPaths{
		Products: writeFile(t, dir, "products.json",
			`[{"id":"p1","title":"Rake","category_path":"Home > Garden","price":10,"in_stock":true}]`),
		Search: writeFile(t, dir, "search.json",
			`[{"url":"/home/garden","clicks":30,"impressions":1000,"position":8}]`),
		Behavioral: writeFile(t, dir, "behavioral.json",
			`[{"node_id":"home-garden","revenue":1000,"sessions":200,"transactions":10}]`),
		URLMap: writeFile(t, dir, "urls.json",
			`{"/home/garden":"home-garden"}`),
	}

	snap, err := LoadSnapshot(paths)
	require.NoError(t, err)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, common.ProductID("p1"), snap.Products[0].ID)
	require.Len(t, snap.SearchMetrics, 1)
	assert.EqualValues(t, 30, snap.SearchMetrics[0].Clicks)
	require.Len(t, snap.BehavioralMetrics, 1)
	assert.Equal(t, common.NodeID("home-garden"), snap.BehavioralMetrics[0].NodeID)
	assert.Equal(t, common.NodeID("home-garden"), snap.URLToNode["/home/garden"])
}

func TestLoadSnapshot_ProductsOnly(t *testing.T) {
	dir := t.TempDir()
	paths := SnapshotPaths{
		Products: writeFile(t, dir, "products.json", `[]`),
	}

	snap, err := LoadSnapshot(paths)
	require.NoError(t, err)
	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.SearchMetrics)
	assert.NotNil(t, snap.URLToNode)
}

func TestLoadSnapshot_MissingProductsPath(t *testing.T) {
	_, err := LoadSnapshot(SnapshotPaths{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoadSnapshot_UnreadableFile(t *testing.T) {
	_, err := LoadSnapshot(SnapshotPaths{Products: filepath.Join(t.TempDir(), "absent.json")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoadSnapshot_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	paths := SnapshotPaths{Products: writeFile(t, dir, "products.json", `{not json`)}

	_, err := LoadSnapshot(paths)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}
