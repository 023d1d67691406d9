// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// farm serves a staking farm over HTTP.
package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/co"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/metrics"
)

const defaultCommitInterval = 10 * time.Second

var (
	version       string
	gitCommit     string
	gitTag        string
	copyrightYear string

	logger = log.WithContext("pkg", "farm")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Farm",
		Usage:     "Weighted multi-pool staking farm",
		Copyright: fmt.Sprintf("2025-%s VeChain Foundation <https://vechain.org/>", copyrightYear),
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			persistFlag,
			commitIntervalFlag,
			apiAddrFlag,
			apiCorsFlag,
			enableAPILogsFlag,
			devFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			ntpServerFlag,
			enableAdminFlag,
			adminAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "dump",
				Usage: "print the registry and pools of a persisted farm",
				Flags: []cli.Flag{
					dataDirFlag,
					verbosityFlag,
				},
				Action: dumpAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)

	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}
	if gene.Config != nil {
		farm.SetConfig(*gene.Config)
	}
	farm.LockConfig()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	f, err := openFarm(store, gene)
	if err != nil {
		return err
	}
	backend := utils.NewSerializer(f)

	group := co.NewGroup()
	defer func() { logger.Info("stopping background routines..."); group.StopAndWait() }()
	if store != nil {
		interval := ctx.Duration(commitIntervalFlag.Name)
		group.Go(func(stop <-chan struct{}) { commitLoop(backend, interval, stop) })
	}
	if server := ctx.String(ntpServerFlag.Name); server != "" {
		group.Go(func(<-chan struct{}) { checkClockOffset(server) })
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeMetrics, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return errors.Wrap(err, "start metrics server")
		}
		defer func() { logger.Info("stopping metrics server..."); closeMetrics() }()
		logger.Info("metrics server started", "url", url)
	}

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	if ctx.Bool(enableAdminFlag.Name) {
		url, closeAdmin, err := startAdminServer(ctx.String(adminAddrFlag.Name), logLevel, apiLogs)
		if err != nil {
			return errors.Wrap(err, "start admin server")
		}
		defer func() { logger.Info("stopping admin server..."); closeAdmin() }()
		logger.Info("admin server started", "url", url)
	}

	apiURL, closeAPI, err := startAPIServer(ctx, backend, apiLogs)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); closeAPI() }()

	printStartupMessage(ctx, f, apiURL)

	<-exitSignal.Done()
	return nil
}
