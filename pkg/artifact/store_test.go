package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTitler struct {
	title string
	err   error
}

func (f fixedTitler) Title(_ context.Context, _, _ string) (string, error) {
	return f.title, f.err
}

func newTestStore(t *testing.T, titler TitleNamer) *Store {
	t.Helper()
	return NewStore(Options{Root: t.TempDir(), Titles: titler})
}

func TestWritePlan(t *testing.T) {
	s := newTestStore(t, nil)
	_, err := s.Create("task1")
	require.NoError(t, err)

	path, err := s.WritePlan(context.Background(), "task1", `{"steps": []}`)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# 任务执行计划\n\n"))
	assert.Contains(t, content, "**生成时间**")
	assert.Contains(t, content, "## 详细计划")
	assert.Contains(t, content, `{"steps": []}`)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"))
	}
}

func TestWriteSummaryUsesTitle(t *testing.T) {
	s := newTestStore(t, fixedTitler{title: "市场研究报告"})
	_, err := s.Create("task1")
	require.NoError(t, err)

	ref, err := s.WriteSummary(context.Background(), "task1", "researcher", "findings")
	require.NoError(t, err)
	assert.Equal(t, "researcher", ref.Worker)
	assert.Equal(t, "市场研究报告", ref.Title)
	assert.FileExists(t, ref.Path)
}

func TestWriteSummaryFallbackOnTitleFailure(t *testing.T) {
	s := newTestStore(t, fixedTitler{err: errors.New("llm down")})
	_, err := s.Create("task1")
	require.NoError(t, err)

	ref, err := s.WriteSummary(context.Background(), "task1", "coder", "output")
	require.NoError(t, err)
	assert.Equal(t, "coder_summary", ref.Title)
	assert.FileExists(t, ref.Path)
}

func TestWriteSummaryCollisionSuffix(t *testing.T) {
	s := newTestStore(t, fixedTitler{title: "分析结果"})
	_, err := s.Create("task1")
	require.NoError(t, err)

	ctx := context.Background()
	first, err := s.WriteSummary(ctx, "task1", "researcher", "a")
	require.NoError(t, err)
	second, err := s.WriteSummary(ctx, "task1", "researcher", "b")
	require.NoError(t, err)
	third, err := s.WriteSummary(ctx, "task1", "researcher", "c")
	require.NoError(t, err)

	assert.Equal(t, "分析结果", first.Title)
	assert.Equal(t, "分析结果_2", second.Title)
	assert.Equal(t, "分析结果_3", third.Title)

	refs := s.ListSummaries("task1")
	require.Len(t, refs, 3)
	assert.Equal(t, first.Title, refs[0].Title)
	assert.Equal(t, third.Title, refs[2].Title)
}

func TestTaskIndex(t *testing.T) {
	s := newTestStore(t, fixedTitler{title: "研究总结"})
	_, err := s.Create("task1")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.WritePlan(ctx, "task1", "{}")
	require.NoError(t, err)
	_, err = s.WriteSummary(ctx, "task1", "researcher", "x")
	require.NoError(t, err)
	_, err = s.WriteFinal(ctx, "task1", "final report")
	require.NoError(t, err)

	idx, err := s.TaskIndex("task1")
	require.NoError(t, err)
	assert.NotEmpty(t, idx.PlanFile)
	assert.NotEmpty(t, idx.FinalIntegration)
	require.Len(t, idx.SummaryFiles, 1)
	assert.Contains(t, idx.SummaryFiles[0], "研究总结.md")
}

func TestTaskIndexMissingTask(t *testing.T) {
	s := newTestStore(t, nil)
	idx, err := s.TaskIndex("nope")
	require.NoError(t, err)
	assert.Empty(t, idx.PlanFile)
	assert.Empty(t, idx.SummaryFiles)
}

func TestDisabledStoreWritesNothing(t *testing.T) {
	root := t.TempDir()
	s := NewStore(Options{Root: root, Disabled: true})

	dir, err := s.Create("task1")
	require.NoError(t, err)
	assert.NoDirExists(t, dir)

	ctx := context.Background()
	path, err := s.WritePlan(ctx, "task1", "{}")
	require.NoError(t, err)
	assert.Empty(t, path)

	ref, err := s.WriteSummary(ctx, "task1", "researcher", "x")
	require.NoError(t, err)
	assert.Equal(t, "researcher", ref.Worker)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExternalizedPaths(t *testing.T) {
	s := NewStore(Options{
		Root:        t.TempDir(),
		FileBaseURL: "https://files.example.com/artifacts/",
		Titles:      fixedTitler{title: "报告"},
	})
	_, err := s.Create("task1")
	require.NoError(t, err)

	ref, err := s.WriteSummary(context.Background(), "task1", "reporter", "x")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/artifacts/task1/报告.md", ref.Path)
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "市场分析", "市场分析"},
		{"forbidden chars", `a/b\c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"whitespace collapse", "  多个   空格\n标题  ", "多个 空格 标题"},
		{"quotes stripped", `"引号标题"`, "引号标题"},
		{"empty", "   ", ""},
		{"truncated", strings.Repeat("长", 60), strings.Repeat("长", 47) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTitle(tt.in, 50))
		})
	}
}
