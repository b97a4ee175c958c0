package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tv_relay/internal/modules/config"
	"tv_relay/internal/modules/health"
	"tv_relay/internal/modules/logger"
	okx "tv_relay/internal/modules/okx_client"
	okxsvc "tv_relay/internal/modules/okx_client/service"
	"tv_relay/internal/modules/server"
	"tv_relay/internal/modules/tracing"
	"tv_relay/internal/modules/webhook"
	webhooksvc "tv_relay/internal/modules/webhook/service"
	"tv_relay/internal/notify"
	"tv_relay/internal/runner"
	pkglogger "tv_relay/pkg/logger"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relay",
		Short:         "TradingView webhook -> OKX reverse relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				return nil
			}
			// NewConfig читает CONFIG_DIR/CONFIG_FILE, fx-граф тоже идёт через него
			if err := os.Setenv("CONFIG_DIR", filepath.Dir(path)); err != nil {
				return err
			}
			return os.Setenv("CONFIG_FILE", filepath.Base(path))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().String("config", "", "path to yaml config (default configs/values_local.yaml)")

	root.AddCommand(newServeCmd(), newCheckCmd(), newSizeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	app := fx.New(
		config.Module(),
		logger.Module(),
		tracing.Module(),
		health.Module(),
		server.Module(),
		notify.Module(),
		okx.Module(),
		runner.Module(),
		webhook.Module(),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify OKX credentials and print account state",
		RunE: func(cmd *cobra.Command, args []string) error {
			coin, _ := cmd.Flags().GetString("coin")
			return runCheck(cmd.Context(), coin)
		},
	}
	cmd.Flags().String("coin", "", "also print position and instrument for this coin")
	return cmd
}

func runCheck(ctx context.Context, coin string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log, err := pkglogger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := okxsvc.NewClient(cfg, log)
	if err != nil {
		return err
	}
	if err := okx.CheckAccount(ctx, c, cfg, nil, log); err != nil {
		return err
	}
	pkglogger.Info("okx credentials ok (%s, demo=%t)", cfg.OKX.BaseURL, cfg.OKX.Demo)

	equity, err := c.Equity(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("equity (%s): %.4f\n", cfg.OKX.EquityCcy, equity)

	if coin == "" {
		return nil
	}
	instID := webhooksvc.InstID(coin, cfg.OKX.InstSuffix)
	inst, err := c.Instrument(ctx, instID)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s): mark=%.6f lotSz=%s minSz=%s ctVal=%s %s\n",
		inst.InstID, inst.Kind, inst.MarkPx, inst.LotSz, inst.MinSz, inst.CtVal, inst.CtValCcy)

	legs, err := c.Positions(ctx, instID)
	if err != nil {
		return err
	}
	if len(legs) == 0 {
		fmt.Println("position: flat")
		return nil
	}
	for _, pos := range legs {
		fmt.Printf("position: %s %s @ %g (lever %g, %s)\n",
			pos.Side, pos.Size, pos.EntryPrice, pos.Leverage, pos.MarginMode)
	}
	return nil
}

func newSizeCmd() *cobra.Command {
	var in struct {
		equity, risk, leverage, price float64
		lot, minSz, ctVal, maxMkt     string
		inverse                       bool
	}
	cmd := &cobra.Command{
		Use:   "size",
		Short: "Compute order size offline, same math as the webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			parse := func(name, s string) (decimal.Decimal, error) {
				if s == "" {
					return decimal.Zero, nil
				}
				d, err := decimal.NewFromString(s)
				if err != nil {
					return decimal.Zero, errors.Wrapf(err, "--%s", name)
				}
				return d, nil
			}
			si := runner.SizeInput{
				Equity:   in.equity,
				RiskPct:  in.risk,
				Leverage: in.leverage,
				Price:    in.price,

				CtValInQuote: in.inverse,
			}
			var err error
			if si.LotSz, err = parse("lot", in.lot); err != nil {
				return err
			}
			if si.MinSz, err = parse("min", in.minSz); err != nil {
				return err
			}
			if si.CtVal, err = parse("ct-val", in.ctVal); err != nil {
				return err
			}
			if si.MaxMktSz, err = parse("max-mkt", in.maxMkt); err != nil {
				return err
			}

			size, err := runner.CalcSizeByRiskWithMeta(si)
			if err != nil {
				return err
			}
			fmt.Println(size.String())
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&in.equity, "equity", 0, "account equity")
	f.Float64Var(&in.risk, "risk", 0.01, "risk fraction, 0.01 = 1%")
	f.Float64Var(&in.leverage, "leverage", 1, "leverage")
	f.Float64Var(&in.price, "price", 0, "mark price")
	f.StringVar(&in.lot, "lot", "", "lot size")
	f.StringVar(&in.minSz, "min", "", "min order size")
	f.StringVar(&in.ctVal, "ct-val", "", "contract value")
	f.StringVar(&in.maxMkt, "max-mkt", "", "max market order size")
	f.BoolVar(&in.inverse, "inverse", false, "ct-val is in quote currency (BTC-USD-SWAP style)")
	_ = cmd.MarkFlagRequired("equity")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
