package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"

	"sentinel/internal/apperr"
	"sentinel/internal/logger"
	"sentinel/internal/models"
)

// StaticRules serves a fixed rule set
type StaticRules []models.ThresholdRule

// EnabledRules returns the enabled rules
func (s StaticRules) EnabledRules(ctx context.Context) ([]models.ThresholdRule, error) {
	return models.EnabledOnly(s), nil
}

type rulesFile struct {
	Rules []models.ThresholdRule `yaml:"rules"`
}

// FileRules reads threshold rules from a YAML file on every call, so edits
// take effect on the next tick.
type FileRules struct {
	path string

	mu     sync.Mutex
	warned map[models.Component]bool
}

// NewFileRules creates a rule source backed by the YAML file at path
func NewFileRules(path string) *FileRules {
	return &FileRules{path: path, warned: make(map[models.Component]bool)}
}

// EnabledRules loads the file and returns its enabled rules
func (f *FileRules) EnabledRules(ctx context.Context) ([]models.ThresholdRule, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", f.path, err)
	}

	rules := models.EnabledOnly(doc.Rules)
	f.warnUnknown(rules)
	return rules, nil
}

// warnUnknown logs each unmatched component name once. Such rules are kept:
// they are valid configuration that simply never fires.
func (f *FileRules) warnUnknown(rules []models.ThresholdRule) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range rules {
		if r.ComponentName.IsKnown() || f.warned[r.ComponentName] {
			continue
		}
		f.warned[r.ComponentName] = true
		log := logger.WithComponent("rules")
		log.Warn().
			Str("component_name", string(r.ComponentName)).
			Str("rule", r.ID).
			Str("file", f.path).
			Msg("rule names an unknown component and will never fire; names are case-sensitive (CPU, Memory, Disk)")
	}
}

// hashStore is the subset of the redis client the rule source needs
type hashStore interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// RedisRules keeps threshold rules in a Redis hash, one JSON-encoded rule
// per field keyed by rule ID.
type RedisRules struct {
	client hashStore
	key    string
}

// NewRedisRules creates a rule source reading the hash at key
func NewRedisRules(client *redis.Client, key string) *RedisRules {
	return &RedisRules{client: client, key: key}
}

// EnabledRules returns the enabled rules ordered by ID
func (r *RedisRules) EnabledRules(ctx context.Context) ([]models.ThresholdRule, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load rules from redis %s: %w", r.key, err)
	}

	ids := make([]string, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rules := make([]models.ThresholdRule, 0, len(ids))
	for _, id := range ids {
		var rule models.ThresholdRule
		if err := json.Unmarshal([]byte(fields[id]), &rule); err != nil {
			log := logger.WithComponent("rules")
			log.Error().Err(err).Str("rule", id).Msg("skipping malformed rule")
			continue
		}
		if rule.ID == "" {
			rule.ID = id
		}
		rules = append(rules, rule)
	}
	return models.EnabledOnly(rules), nil
}

// PutRule stores rule under its ID, replacing any previous version
func (r *RedisRules) PutRule(ctx context.Context, rule models.ThresholdRule) error {
	if rule.ID == "" {
		return apperr.New(apperr.ErrConfiguration, "put rule", "rule id cannot be empty")
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("encode rule %s: %w", rule.ID, err)
	}
	if err := r.client.HSet(ctx, r.key, rule.ID, data).Err(); err != nil {
		return fmt.Errorf("store rule %s: %w", rule.ID, err)
	}
	return nil
}

// DeleteRule removes the rule with the given ID
func (r *RedisRules) DeleteRule(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return nil
}
