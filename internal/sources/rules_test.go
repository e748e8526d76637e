package sources

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/models"
)

func TestStaticRules_FiltersDisabled(t *testing.T) {
	s := StaticRules{
		{ID: "a", ComponentName: models.ComponentCPU, ThresholdValue: 80, Enabled: true},
		{ID: "b", ComponentName: models.ComponentDisk, ThresholdValue: 90},
	}

	rules, err := s.EnabledRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "a", rules[0].ID)
}

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFileRules_Load(t *testing.T) {
	path := writeRules(t, `
rules:
  - id: cpu-high
    component_name: CPU
    threshold_value: 90
    enabled: true
  - id: mem-high
    component_name: Memory
    threshold_value: 75.5
    enabled: false
  - id: typo
    component_name: cpu
    threshold_value: 10
    enabled: true
`)

	rules, err := NewFileRules(path).EnabledRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, models.ThresholdRule{ID: "cpu-high", ComponentName: models.ComponentCPU, ThresholdValue: 90, Enabled: true}, rules[0])
	// unknown names are kept; they simply never match
	assert.Equal(t, models.Component("cpu"), rules[1].ComponentName)
}

func TestFileRules_PicksUpEdits(t *testing.T) {
	path := writeRules(t, "rules: []\n")
	src := NewFileRules(path)

	rules, err := src.EnabledRules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)

	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - {component_name: Disk, threshold_value: 50, enabled: true}\n"), 0o600))
	rules, err = src.EnabledRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, models.ComponentDisk, rules[0].ComponentName)
}

func TestFileRules_Errors(t *testing.T) {
	_, err := NewFileRules(filepath.Join(t.TempDir(), "missing.yaml")).EnabledRules(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewFileRules(writeRules(t, "rules: [")).EnabledRules(context.Background())
	assert.Error(t, err)
}

type fakeHash struct {
	fields map[string]string
	err    error
}

func (f *fakeHash) HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return redis.NewStringStringMapResult(out, f.err)
}

func (f *fakeHash) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for i := 0; i+1 < len(values); i += 2 {
		f.fields[values[i].(string)] = string(values[i+1].([]byte))
	}
	return redis.NewIntResult(1, nil)
}

func (f *fakeHash) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	for _, k := range fields {
		delete(f.fields, k)
	}
	return redis.NewIntResult(int64(len(fields)), f.err)
}

func ruleJSON(t *testing.T, r models.ThresholdRule) string {
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return string(b)
}

func TestRedisRules_EnabledRules(t *testing.T) {
	store := &fakeHash{fields: map[string]string{
		"b-disk": ruleJSON(t, models.ThresholdRule{ComponentName: models.ComponentDisk, ThresholdValue: 95, Enabled: true}),
		"a-cpu":  ruleJSON(t, models.ThresholdRule{ID: "a-cpu", ComponentName: models.ComponentCPU, ThresholdValue: 80, Enabled: true}),
		"c-off":  ruleJSON(t, models.ThresholdRule{ComponentName: models.ComponentMemory, ThresholdValue: 10}),
		"broken": "{not json",
	}}
	src := &RedisRules{client: store, key: "rules"}

	rules, err := src.EnabledRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a-cpu", rules[0].ID)
	assert.Equal(t, "b-disk", rules[1].ID, "field name fills a missing id")
}

func TestRedisRules_PutAndDelete(t *testing.T) {
	store := &fakeHash{fields: map[string]string{}}
	src := &RedisRules{client: store, key: "rules"}
	ctx := context.Background()

	require.NoError(t, src.PutRule(ctx, models.ThresholdRule{ID: "cpu", ComponentName: models.ComponentCPU, ThresholdValue: 70, Enabled: true}))
	rules, err := src.EnabledRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 70.0, rules[0].ThresholdValue)

	require.NoError(t, src.DeleteRule(ctx, "cpu"))
	rules, err = src.EnabledRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)

	assert.Error(t, src.PutRule(ctx, models.ThresholdRule{ComponentName: models.ComponentCPU}))
}

func TestRedisRules_BackendError(t *testing.T) {
	src := &RedisRules{client: &fakeHash{err: errors.New("connection refused")}, key: "rules"}

	_, err := src.EnabledRules(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
