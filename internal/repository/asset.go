package repository

import (
	"context"
	"errors"
	"fmt"
	"rebalancer/types"

	"github.com/jackc/pgx/v5"
)

// GetAssetByTicker retrieves a types.Asset by its ticker.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	asset, err := db.assets.GetAssetByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	a := convertAsset(asset)
	return &a, nil
}

// ListAssets returns every asset ordered by ticker.
func (db *Database) ListAssets(ctx context.Context) ([]types.Asset, error) {
	rows, err := db.assets.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	assets := make([]types.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, convertAsset(row))
	}
	return assets, nil
}

func convertAsset(asset assetRow) types.Asset {
	return types.Asset{
		Id:         int(asset.ID),
		Ticker:     asset.Ticker,
		Name:       asset.Name,
		Type:       types.AssetType(asset.Type),
		Industry:   deref(asset.Industry),
		CreatedAt:  asset.CreatedAt,
		ModifiedAt: asset.ModifiedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
