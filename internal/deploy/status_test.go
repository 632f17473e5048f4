package deploy

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwuu/sitedeploy/internal/generation"
)

func openHistory(t *testing.T) *generation.HistoryStore {
	t.Helper()
	store, err := generation.OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStatusRunner_NoHistory(t *testing.T) {
	var out bytes.Buffer
	s := &StatusRunner{History: openHistory(t), Output: &out}

	require.NoError(t, s.Run(context.Background(), "site1"))
	assert.Contains(t, out.String(), "未找到网站 site1 的生成记录")

	out.Reset()
	require.NoError(t, s.PrintHistory(context.Background(), "site1", 10))
	assert.Contains(t, out.String(), "未找到网站 site1 的生成记录")
}

func TestStatusRunner_AfterFailedRun(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()

	start := time.Now()
	end := start.Add(2 * time.Second)
	require.NoError(t, store.Append(ctx, generation.Event{WebsiteID: "site1", RunID: "0d9f7c1e-run", Status: generation.StatusProcessing, Step: generation.StepBuild, StartTime: start}))
	require.NoError(t, store.Append(ctx, generation.Event{WebsiteID: "site1", RunID: "0d9f7c1e-run", Status: generation.StatusFail, Step: generation.StepBuild, Reason: "exit status 1", StartTime: start, EndTime: &end}))

	var out bytes.Buffer
	s := &StatusRunner{History: store, Output: &out}

	require.NoError(t, s.Run(ctx, "site1"))
	output := out.String()
	assert.Contains(t, output, "❌ FAIL")
	assert.Contains(t, output, "BUILD")
	assert.Contains(t, output, "exit status 1")
	assert.Contains(t, output, "耗时 2s")
	assert.NotContains(t, output, "任务尚未结束")

	out.Reset()
	require.NoError(t, s.PrintHistory(ctx, "site1", 0))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "PROCESSING")
	assert.Contains(t, string(lines[1]), "exit status 1")
}

func TestStatusRunner_PrintRun(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, store.Append(ctx, generation.Event{WebsiteID: "site1", RunID: "run-a", Status: generation.StatusProcessing, Step: generation.StepBuild, StartTime: start}))
	require.NoError(t, store.Append(ctx, generation.Event{WebsiteID: "site1", RunID: "run-b", Status: generation.StatusProcessing, Step: generation.StepClean, StartTime: start}))
	require.NoError(t, store.Append(ctx, generation.Event{WebsiteID: "site1", RunID: "run-a", Status: generation.StatusProcessing, Step: generation.StepUpload, StartTime: start}))

	var out bytes.Buffer
	s := &StatusRunner{History: store, Output: &out}

	require.NoError(t, s.PrintRun(ctx, "run-a"))
	output := out.String()
	assert.Contains(t, output, "网站 site1 任务 run-a")
	assert.Contains(t, output, "BUILD")
	assert.Contains(t, output, "UPLOAD")
	assert.NotContains(t, output, "CLEAN")
	assert.Contains(t, output, "任务尚未结束")

	out.Reset()
	require.NoError(t, s.Run(ctx, "site1"))
	assert.Contains(t, out.String(), "任务尚未结束")

	out.Reset()
	require.NoError(t, s.PrintRun(ctx, "missing"))
	assert.Contains(t, out.String(), "未找到任务 missing")
}
