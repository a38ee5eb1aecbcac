package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
)

// Settings is the typed view of the settings table
type Settings struct {
	CooldownHours int
	KeyMessage    string
}

const settingsCacheTTL = 10 * time.Minute

// SettingsService reads settings through an in-process cache and invalidates it on write
type SettingsService struct {
	repo         *repositories.SettingsRepository
	cache        *common.CacheService
	defaultHours int
}

func NewSettingsService(repo *repositories.SettingsRepository, cache *common.CacheService, defaultHours int) *SettingsService {
	return &SettingsService{repo: repo, cache: cache, defaultHours: defaultHours}
}

// Current returns the active settings. Unreadable persisted values fall back to defaults.
func (s *SettingsService) Current(ctx context.Context) (Settings, error) {
	val, err := s.cache.GetOrSet(string(constants.CachePrefixSettings), settingsCacheTTL, func() (any, error) {
		raw, err := s.repo.All(ctx)
		if err != nil {
			return nil, err
		}
		return s.decode(raw), nil
	})
	if err != nil {
		return Settings{}, storeErr("load settings", err)
	}
	return val.(Settings), nil
}

func (s *SettingsService) decode(raw map[string]string) Settings {
	settings := Settings{
		CooldownHours: s.defaultHours,
		KeyMessage:    constants.DefaultKeyMessage,
	}

	if v, ok := raw[constants.SettingCooldownHours]; ok {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < constants.MinCooldownHours || hours > constants.MaxCooldownHours {
			logging.Warn("Ignoring invalid stored cooldown", "value", v)
		} else {
			settings.CooldownHours = hours
		}
	}

	if v, ok := raw[constants.SettingKeyMessage]; ok && strings.Contains(v, constants.KeyPlaceholder) {
		settings.KeyMessage = v
	}
	return settings
}

// SetCooldownHours accepts 1..720
func (s *SettingsService) SetCooldownHours(ctx context.Context, hours int) error {
	if hours < constants.MinCooldownHours || hours > constants.MaxCooldownHours {
		return &ValidationError{
			Field:  "cooldown hours",
			Input:  strconv.Itoa(hours),
			Reason: "must be between 1 and 720",
		}
	}
	return s.set(ctx, constants.SettingCooldownHours, strconv.Itoa(hours))
}

// ParseCooldownHours validates raw admin text before SetCooldownHours
func ParseCooldownHours(input string) (int, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, &ValidationError{Field: "cooldown hours", Input: input, Reason: "not a whole number"}
	}
	return hours, nil
}

// SetKeyMessage requires the {key} placeholder
func (s *SettingsService) SetKeyMessage(ctx context.Context, template string) error {
	if !strings.Contains(template, constants.KeyPlaceholder) {
		return &ValidationError{
			Field:  "key message",
			Input:  template,
			Reason: "must contain " + constants.KeyPlaceholder,
		}
	}
	return s.set(ctx, constants.SettingKeyMessage, template)
}

func (s *SettingsService) set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return storeErr("save setting", err)
	}
	s.cache.Delete(string(constants.CachePrefixSettings))
	logging.Info("Setting updated", "key", key)
	return nil
}
