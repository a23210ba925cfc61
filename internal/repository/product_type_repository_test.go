package repository_test

import (
	"context"
	"testing"

	"github.com/straye-as/estimate-grid/internal/domain"
	"github.com/straye-as/estimate-grid/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductTypeRepository_ListProductTypes(t *testing.T) {
	repo := repository.NewProductTypeRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.ProductTypeRecord{
		ID:       "pt-sign",
		Name:     "Sign",
		Category: "signage",
		Fields:   `[[{"name":"material","required":true,"options":["aluminium","acrylic"]}]]`,
		IsActive: true,
	}))
	require.NoError(t, repo.Create(ctx, &domain.ProductTypeRecord{
		ID:       "pt-retired",
		Name:     "Retired",
		Category: "signage",
		Fields:   `[]`,
		IsActive: false,
	}))

	types, err := repo.ListProductTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "pt-sign", types[0].ID)

	fields := types[0].AllFields()
	require.Len(t, fields, 1)
	assert.Equal(t, "material", fields[0].Name)
	assert.True(t, fields[0].Required)
	assert.Equal(t, []string{"aluminium", "acrylic"}, fields[0].Options)
}

func TestProductTypeRepository_ListProductTypesBadJSON(t *testing.T) {
	repo := repository.NewProductTypeRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.ProductTypeRecord{
		ID:       "pt-broken",
		Name:     "Broken",
		Category: "signage",
		Fields:   `{not json`,
		IsActive: true,
	}))

	_, err := repo.ListProductTypes(ctx)
	assert.Error(t, err)
}

func TestProductTypeRepository_ListOptionSets(t *testing.T) {
	repo := repository.NewProductTypeRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateOptionSet(ctx, &domain.OptionSetRecord{
		Key:     "colors",
		Options: `[{"value":"red","label":"Red"},{"value":"blue","label":"Blue"}]`,
	}))
	require.NoError(t, repo.CreateOptionSet(ctx, &domain.OptionSetRecord{
		Key:     "finishes",
		Options: `[{"code":"matte"}]`,
	}))

	sets, err := repo.ListOptionSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	require.Len(t, sets["colors"], 2)
	assert.Equal(t, "red", sets["colors"][0]["value"])
	assert.Equal(t, "Red", sets["colors"][0]["label"])
	assert.Equal(t, "matte", sets["finishes"][0]["code"])
}
