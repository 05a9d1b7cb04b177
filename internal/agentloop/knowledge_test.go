package agentloop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cortexmemory/cortex/internal/config"
	"github.com/cortexmemory/cortex/internal/domain"
	"github.com/cortexmemory/cortex/internal/knowledge"
	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeContext_LegacyModeReturnsEmpty(t *testing.T) {
	adapter := domain.NewGridtoolAdapter()
	deps := Deps{Cfg: config.Config{LearningMode: types.LearningLegacy}, Adapter: adapter}
	assert.Equal(t, "", knowledgeContext(deps, "tally sales by region"))
}

func TestKnowledgeContext_StrictModeReturnsScoredChunk(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "gridtool.md")
	require.NoError(t, os.WriteFile(docPath, []byte("TALLY groups rows by a column and applies an aggregate function."), 0o644))

	adapter := &domain.GridtoolAdapter{Docs: []domain.DomainDoc{{Name: "gridtool.md", Path: docPath}}}
	deps := Deps{Cfg: config.Config{LearningMode: types.LearningStrict}, Adapter: adapter}

	got := knowledgeContext(deps, "how does TALLY group rows")
	assert.Contains(t, got, "gridtool.md")
	assert.Contains(t, got, "aggregate function")
}

func TestKnowledgeContext_NoDocsReturnsEmpty(t *testing.T) {
	adapter := &domain.GridtoolAdapter{}
	deps := Deps{Cfg: config.Config{LearningMode: types.LearningStrict}, Adapter: adapter}
	assert.Equal(t, "", knowledgeContext(deps, "anything"))
}

func TestKnowledgeContext_UsesCacheWhenPresent(t *testing.T) {
	cache, err := knowledge.OpenChunkCache(filepath.Join(t.TempDir(), "cache.leveldb"))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(knowledge.Doc{Path: "/nonexistent/cached.md", Text: "aggregate functions like sum and avg over a column"}))

	adapter := &domain.GridtoolAdapter{Docs: []domain.DomainDoc{{Name: "cached.md", Path: "/nonexistent/cached.md"}}}
	deps := Deps{Cfg: config.Config{LearningMode: types.LearningStrict}, Adapter: adapter, KnowledgeCache: cache}

	got := knowledgeContext(deps, "sum and avg")
	assert.Contains(t, got, "cached.md")
}
