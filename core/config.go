package core

import (
	"fmt"
	"strings"
)

type CollectionConfig struct {
	AppID       int            `koanf:"app_id" mapstructure:"app_id"`
	KeyProperty string         `koanf:"key_property" mapstructure:"key_property"`
	Mappings    map[int]string `koanf:"mappings" mapstructure:"mappings"`
}

type UsersConfig struct {
	CollectionConfig `koanf:",squash" mapstructure:",squash"`

	Status        StatusConfig `koanf:"status" mapstructure:"status"`
	GroupsFieldID int          `koanf:"groups_field_id" mapstructure:"groups_field_id"`
}

type RetryConfig struct {
	MaxAttempts   int `koanf:"max_attempts" mapstructure:"max_attempts"`
	BackoffStepMS int `koanf:"backoff_step_ms" mapstructure:"backoff_step_ms"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	PageSize    int              `koanf:"page_size" mapstructure:"page_size"`
	Concurrency int              `koanf:"concurrency" mapstructure:"concurrency"`
	Groups      CollectionConfig `koanf:"groups" mapstructure:"groups"`
	Users       UsersConfig      `koanf:"users" mapstructure:"users"`
	GroupFilter GroupFilter      `koanf:"group_filter" mapstructure:"group_filter"`
	Retry       RetryConfig      `koanf:"retry" mapstructure:"retry"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "dirsync",
		PageSize:    20,
		Concurrency: 4,
		Groups: CollectionConfig{
			KeyProperty: "id",
			Mappings:    map[int]string{},
		},
		Users: UsersConfig{
			CollectionConfig: CollectionConfig{
				KeyProperty: "userPrincipalName",
				Mappings:    map[int]string{},
			},
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			BackoffStepMS: 1000,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("core: page_size must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("core: concurrency must be positive")
	}
	if c.Groups.AppID <= 0 {
		return fmt.Errorf("core: groups.app_id is required")
	}
	if c.Users.AppID <= 0 {
		return fmt.Errorf("core: users.app_id is required")
	}
	if strings.TrimSpace(c.Groups.KeyProperty) == "" {
		return fmt.Errorf("core: groups.key_property is required")
	}
	if strings.TrimSpace(c.Users.KeyProperty) == "" {
		return fmt.Errorf("core: users.key_property is required")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("core: retry.max_attempts must be positive")
	}
	for fieldID := range c.Groups.Mappings {
		if fieldID <= 0 {
			return fmt.Errorf("core: groups.mappings contains invalid field id %d", fieldID)
		}
	}
	for fieldID := range c.Users.Mappings {
		if fieldID <= 0 {
			return fmt.Errorf("core: users.mappings contains invalid field id %d", fieldID)
		}
	}
	return nil
}

func (c Config) GroupMappings() FieldMappings {
	return FieldMappings(c.Groups.Mappings).Clone()
}

func (c Config) UserMappings() FieldMappings {
	return FieldMappings(c.Users.Mappings).Clone()
}
