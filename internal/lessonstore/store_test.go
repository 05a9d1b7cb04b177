package lessonstore

import (
	"path/filepath"
	"testing"

	"github.com/cortexmemory/cortex/internal/types"
	"github.com/stretchr/testify/require"
)

func TestStore_UpsertIdentityDedupUnionsSourceSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")
	s := New(path)

	a := FromCandidate("always quote load paths", []string{"ef_x"}, []string{"gridtool"}, "t1", "task", "gridtool", 101)
	b := FromCandidate("always quote load paths", []string{"ef_x"}, []string{"gridtool"}, "t1", "task", "gridtool", 202)
	require.Equal(t, a.LessonID, b.LessonID)

	res1, err := s.Upsert([]types.LessonRecord{a})
	require.NoError(t, err)
	require.Equal(t, 1, res1.Inserted)

	res2, err := s.Upsert([]types.LessonRecord{b})
	require.NoError(t, err)
	require.Equal(t, 1, res2.Merged)
	require.Equal(t, 1, res2.Total)

	all, err := s.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.ElementsMatch(t, []int{101, 202}, all[0].SourceSessionIDs)
}

func TestStore_UpsertMergePromotesStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")
	s := New(path)

	candidate := FromCandidate("back off on 429 responses", []string{"ef_y"}, []string{"rate_limited"}, "t1", "task", "artic", 1)
	_, err := s.Upsert([]types.LessonRecord{candidate})
	require.NoError(t, err)

	promoted := candidate
	promoted.Status = types.StatusPromoted
	_, err = s.Upsert([]types.LessonRecord{promoted})
	require.NoError(t, err)

	all, err := s.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, types.StatusPromoted, all[0].Status)
}

func TestStore_UpsertRecomputesConflictLinksAcrossFullSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")
	s := New(path)

	a := FromCandidate("LOAD requires quoted path", []string{"ef_shared"}, []string{"gridtool"}, "t1", "task", "gridtool", 1)
	res, err := s.Upsert([]types.LessonRecord{a})
	require.NoError(t, err)
	require.Equal(t, 0, res.ConflictLinks)

	b := FromCandidate("LOAD does not require quoted path", []string{"ef_shared"}, []string{"gridtool"}, "t1", "task", "gridtool", 2)
	res2, err := s.Upsert([]types.LessonRecord{b})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res2.ConflictLinks, 1)

	all, err := s.Load()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotEmpty(t, all[0].ConflictLessonIDs)
	require.NotEmpty(t, all[1].ConflictLessonIDs)
}

func TestStore_ArchiveSetsTerminalStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")
	s := New(path)

	rec := FromCandidate("noisy flaky lesson", []string{"ef_z"}, []string{"uncategorized"}, "t1", "task", "sqlite", 1)
	_, err := s.Upsert([]types.LessonRecord{rec})
	require.NoError(t, err)

	n, err := s.Archive([]string{rec.LessonID}, "harmful_after_promotion")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, err := s.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, types.StatusArchived, all[0].Status)
	require.NotNil(t, all[0].ArchivedReason)
	require.Equal(t, "harmful_after_promotion", *all[0].ArchivedReason)
}

func TestStore_LoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")
	s := New(path)

	rec := FromCandidate("keep this one", []string{"ef_ok"}, []string{"uncategorized"}, "t1", "task", "sqlite", 1)
	_, err := s.Upsert([]types.LessonRecord{rec})
	require.NoError(t, err)

	appendRaw(t, path, "not json at all\n")

	all, err := s.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, rec.LessonID, all[0].LessonID)
}

func TestMigrateLegacy_MapsEvalScoreIntoReliabilityRange(t *testing.T) {
	legacyPath := filepath.Join(t.TempDir(), "memory.jsonl")
	v2Path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")

	writeRaw(t, legacyPath, `{"rule":"always quote load paths","eval_score":0.8,"task_id":"t1","task":"task","domain":"gridtool","session_id":1}`+"\n")

	res, err := MigrateLegacy(legacyPath, v2Path)
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)

	all, err := New(v2Path).Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.InDelta(t, 0.35+0.55*0.8, all[0].Reliability, 1e-9)
}

func TestMigrateLegacy_IsIdempotent(t *testing.T) {
	legacyPath := filepath.Join(t.TempDir(), "memory.jsonl")
	v2Path := filepath.Join(t.TempDir(), "lessons_v2.jsonl")
	writeRaw(t, legacyPath, `{"rule":"retry on timeout","eval_score":0.5,"task_id":"t1","task":"task","domain":"artic","session_id":1}`+"\n")

	_, err := MigrateLegacy(legacyPath, v2Path)
	require.NoError(t, err)
	_, err = MigrateLegacy(legacyPath, v2Path)
	require.NoError(t, err)

	all, err := New(v2Path).Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
}
