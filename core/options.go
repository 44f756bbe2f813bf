package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	// The loaded layer may be partial; validation happens once the resolver
	// has merged it with runtime overrides.
	cfg, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, file configuration, and runtime
// overrides in ascending precedence.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.PageSize > 0 {
		layer["page_size"] = cfg.PageSize
	}
	if includeZero || cfg.Concurrency > 0 {
		layer["concurrency"] = cfg.Concurrency
	}
	if includeZero || cfg.Groups.AppID > 0 || len(cfg.Groups.Mappings) > 0 {
		layer["groups"] = collectionToLayerMap(cfg.Groups)
	}
	if includeZero || cfg.Users.AppID > 0 || len(cfg.Users.Mappings) > 0 || cfg.Users.Status.FieldID > 0 {
		users := collectionToLayerMap(cfg.Users.CollectionConfig)
		users["groups_field_id"] = cfg.Users.GroupsFieldID
		users["status"] = map[string]any{
			"field_id":          cfg.Users.Status.FieldID,
			"active_value_id":   cfg.Users.Status.ActiveValueID,
			"inactive_value_id": cfg.Users.Status.InactiveValueID,
			"active_groups":     append([]string(nil), cfg.Users.Status.ActiveGroups...),
		}
		layer["users"] = users
	}
	if includeZero || cfg.GroupFilter.Configured() {
		layer["group_filter"] = map[string]any{
			"property": cfg.GroupFilter.Property,
			"pattern":  cfg.GroupFilter.Pattern,
		}
	}
	if includeZero || cfg.Retry.MaxAttempts > 0 {
		layer["retry"] = map[string]any{
			"max_attempts":    cfg.Retry.MaxAttempts,
			"backoff_step_ms": cfg.Retry.BackoffStepMS,
		}
	}
	return layer
}

func collectionToLayerMap(cfg CollectionConfig) map[string]any {
	mappings := make(map[int]string, len(cfg.Mappings))
	for fieldID, property := range cfg.Mappings {
		mappings[fieldID] = property
	}
	return map[string]any{
		"app_id":       cfg.AppID,
		"key_property": cfg.KeyProperty,
		"mappings":     mappings,
	}
}
