package service

import (
	"context"
	"errors"
	"fmt"

	"techstore/internal/domain"
	"techstore/internal/repository"
)

// SettingsService serves the storefront singletons, falling back to defaults
type SettingsService interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	ReplaceCategories(ctx context.Context, categories []domain.Category) ([]domain.Category, error)
	Store(ctx context.Context) (*domain.StoreProfile, error)
	UpdateStore(ctx context.Context, patch domain.StorePatch) (*domain.StoreProfile, error)
}

type settingsService struct {
	settingsRepo repository.SettingsRepository
}

// NewSettingsService creates a new instance of SettingsService
func NewSettingsService(settingsRepo repository.SettingsRepository) SettingsService {
	return &settingsService{settingsRepo: settingsRepo}
}

func (s *settingsService) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := s.settingsRepo.Get(ctx, domain.SettingsKeyCategories, &categories); err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return domain.DefaultCategories(), nil
		}
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// ReplaceCategories overwrites the whole category list
func (s *settingsService) ReplaceCategories(ctx context.Context, categories []domain.Category) ([]domain.Category, error) {
	if categories == nil {
		categories = []domain.Category{}
	}
	if err := s.settingsRepo.Put(ctx, domain.SettingsKeyCategories, categories); err != nil {
		return nil, fmt.Errorf("failed to save categories: %w", err)
	}
	return categories, nil
}

func (s *settingsService) Store(ctx context.Context) (*domain.StoreProfile, error) {
	profile := domain.DefaultStoreProfile()
	if err := s.settingsRepo.Get(ctx, domain.SettingsKeyStore, &profile); err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			profile = domain.DefaultStoreProfile()
			return &profile, nil
		}
		return nil, fmt.Errorf("failed to get store profile: %w", err)
	}
	return &profile, nil
}

// UpdateStore merges the provided fields into the stored profile
func (s *settingsService) UpdateStore(ctx context.Context, patch domain.StorePatch) (*domain.StoreProfile, error) {
	profile, err := s.Store(ctx)
	if err != nil {
		return nil, err
	}
	patch.Apply(profile)

	if err := s.settingsRepo.Put(ctx, domain.SettingsKeyStore, profile); err != nil {
		return nil, fmt.Errorf("failed to save store profile: %w", err)
	}
	return profile, nil
}
