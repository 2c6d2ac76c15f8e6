package main

import (
	"fmt"
	"rebalancer/internal/config"
	"rebalancer/internal/repository"
	"rebalancer/types"
	"strconv"

	"github.com/spf13/cobra"
)

var assetsCmd = &cobra.Command{
	Use:   "assets [ticker]",
	Short: "List the assets of the Postgres price database",
	Long: `Assets prints the asset table of the database named by data.db_url (or
BACKTEST_DB_URL). The industry column is the group used by the group caps.

Examples:
  backtester assets -c backtest.yaml
  backtester assets -c backtest.yaml AAPL`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssets,
}

func init() {
	rootCmd.AddCommand(assetsCmd)
}

func runAssets(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Data.Source != config.SourcePostgres {
		return fmt.Errorf("assets needs data.source %s, config has %s", config.SourcePostgres, cfg.Data.Source)
	}

	ctx := cmd.Context()
	db, err := repository.NewDatabase(ctx, cfg.Data.DBURL)
	if err != nil {
		return err
	}
	defer db.Close()

	var assets []types.Asset
	if len(args) == 1 {
		asset, err := db.GetAssetByTicker(ctx, args[0])
		if err != nil {
			return err
		}
		assets = []types.Asset{*asset}
	} else {
		if assets, err = db.ListAssets(ctx); err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []string{strconv.Itoa(a.Id), a.Ticker, a.Name, string(a.Type), a.Industry})
	}
	printTable(cmd.OutOrStdout(), []string{"ID", "Ticker", "Name", "Type", "Industry"}, rows, nil)
	return nil
}
