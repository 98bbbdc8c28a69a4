// prodctl 生产计划运维命令行：建表、初始化目录、过期扫描、订单导入、排产。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"github.com/sanventru/odoomegastock-sub001/internal/production/app"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const cliUser = "prodctl"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prodctl",
		Short:         "Production planning maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newSweepCmd(),
		newImportCmd(),
		newPlanCmd(),
	)
	return root
}

// withApp 加载配置与资源后执行 fn
func withApp(cmd *cobra.Command, migrate bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := app.InitLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger, app.Options{Migrate: migrate})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and backfill legacy product categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				n, err := entity.MigrateLegacyCategories(a.DB.WithContext(ctx))
				if err != nil {
					return err
				}
				a.Logger.Info("migration completed", zap.Int("categories_backfilled", n))
				return nil
			})
		},
	}
}

// loadCatalogSeed 读取楞型与母卷初始化文件，文件不存在返回 nil
func loadCatalogSeed(path string) (*service.CatalogSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var seed service.CatalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &seed, nil
}

func newSeedCmd() *cobra.Command {
	var catalogFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load standard recipes, flutes and reels",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := loadCatalogSeed(catalogFile)
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				recipes, err := a.Services.Recipe.SeedStandardTests(ctx)
				if err != nil {
					return err
				}
				res, err := a.Services.Catalog.Seed(ctx, seed)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{
					"recipes": recipes,
					"flutes":  res.Flutes,
					"bobinas": res.Bobinas,
				})
			})
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", filepath.Join("configs", "catalog.yaml"), "catalog seed file")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var audit bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the inventory expiry sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				flagged, err := a.Services.Alert.ExpirySweep(ctx)
				if err != nil {
					return err
				}
				out := map[string]interface{}{"flagged": flagged}
				if audit {
					bad, err := a.Services.Alert.VerifyWorkOrders(ctx)
					if err != nil {
						return err
					}
					out["inconsistent_work_orders"] = bad
				}
				return printJSON(cmd, out)
			})
		},
	}
	cmd.Flags().BoolVar(&audit, "audit", false, "also verify work order aggregates")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		delimiter      string
		skipRows       int
		updateExisting bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import production orders from CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := service.ImportOptions{
				Filename:  filepath.Base(args[0]),
				Delimiter: delimiter,
			}
			if cmd.Flags().Changed("skip-rows") {
				opts.SkipRows = &skipRows
			}
			if cmd.Flags().Changed("update-existing") {
				opts.UpdateExisting = &updateExisting
			}
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Import.ImportOrders(ctx, f, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&delimiter, "delimiter", ";", "CSV delimiter")
	cmd.Flags().IntVar(&skipRows, "skip-rows", 2, "header rows to skip")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", true, "update orders that already exist")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var req service.PlanRequest
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run cutting-stock planning for pending orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				out, err := a.Services.Planning.Plan(ctx, &req, cliUser)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
	cmd.Flags().IntVar(&req.TestPrincipal, "test", 0, "principal test number")
	cmd.Flags().IntVar(&req.CavityLimit, "cavity-limit", 0, "max cavity per order (0 uses config)")
	cmd.Flags().StringSliceVar(&req.ReelIDs, "reel", nil, "reel ids to consider")
	cmd.Flags().StringSliceVar(&req.OrderIDs, "order", nil, "order ids to plan (default all pending)")
	cmd.Flags().BoolVar(&req.SingleReel, "single-reel", false, "use a single reel width for every group")
	cmd.MarkFlagRequired("test")
	return cmd
}
