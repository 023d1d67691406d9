// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/farm/api"
	"github.com/vechain/farm/api/admin"
	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/clock"
	"github.com/vechain/farm/co"
	"github.com/vechain/farm/genesis"
	"github.com/vechain/farm/kv"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/lvldb"
	"github.com/vechain/farm/metrics"
	"github.com/vechain/farm/state"
)

func initLogger(ctx *cli.Context) *slog.LevelVar {
	logLevel := new(slog.LevelVar)
	logLevel.Set(log.FromVerbosity(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.NewJSONHandler(os.Stderr, logLevel)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandler(os.Stderr, logLevel, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return logLevel
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

// checkClockOffset warns when the system clock, which drives reward accrual, is off by more than a second.
func checkClockOffset(server string) {
	resp, err := ntp.Query(server)
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	if offset := resp.ClockOffset; offset > time.Second || offset < -time.Second {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(offset))
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".org.vechain.farm")
}

func loadGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	if path := ctx.String(configFlag.Name); path != "" {
		gene, err := genesis.Load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "-%s", configFlag.Name)
		}
		return gene, nil
	}
	if ctx.Bool(devFlag.Name) {
		return genesis.NewDevnet(clock.System{}.Now()), nil
	}
	return nil, errors.Errorf("either -%s or -%s is required", configFlag.Name, devFlag.Name)
}

func openDB(dataDir string) (*lvldb.LevelDB, error) {
	if dataDir == "" {
		return nil, errors.Errorf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create data dir at '%v'", dataDir)
	}
	dir := filepath.Join(dataDir, "farm.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 64,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open farm database at '%v'", dir)
	}
	return db, nil
}

// openStore opens the database under the data dir when the state persists,
// and returns a nil store otherwise.
func openStore(ctx *cli.Context) (kv.Store, func(), error) {
	if !ctx.Bool(persistFlag.Name) {
		return nil, func() {}, nil
	}
	db, err := openDB(ctx.String(dataDirFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		logger.Info("closing farm database...")
		if err := db.Close(); err != nil {
			logger.Warn("failed to close farm database", "err", err)
		}
	}, nil
}

// openFarm binds the farm of the store, building it from the genesis on an empty store.
func openFarm(store kv.Store, gene *genesis.Genesis) (*builtin.Farm, error) {
	f, err := builtin.New(state.New(store), clock.System{})
	if err != nil {
		return nil, errors.Wrap(err, "open farm")
	}
	owner, err := f.Registry().Owner()
	if err != nil {
		return nil, err
	}
	if !owner.IsZero() {
		logger.Info("farm loaded", "owner", owner)
		return f, nil
	}

	res, err := gene.Build(f)
	if err != nil {
		return nil, errors.Wrap(err, "build genesis")
	}
	if store != nil {
		if err := f.Commit(); err != nil {
			return nil, errors.Wrap(err, "commit genesis")
		}
	}
	for symbol, addr := range res.Tokens {
		logger.Info("token", "symbol", symbol, "address", addr, "pool", res.Pools[symbol])
	}
	return f, nil
}

// commitLoop persists the writes at most once per interval, and a last time when stopped.
func commitLoop(backend *utils.Serializer, interval time.Duration, stop <-chan struct{}) {
	var (
		waiter = backend.NewWriteWaiter()
		ticker = time.NewTicker(interval)
		dirty  bool
	)
	defer ticker.Stop()

	commit := func() {
		if err := backend.Commit(); err != nil {
			logger.Error("failed to commit", "err", err)
			return
		}
		dirty = false
		logger.Debug("state committed")
	}

	for {
		select {
		case <-stop:
			commit()
			return
		case <-waiter.C():
			dirty = true
		case <-ticker.C:
			if dirty {
				commit()
			}
		}
	}
}

func startAPIServer(ctx *cli.Context, backend *utils.Serializer, apiLogs *atomic.Bool) (string, func(), error) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}

	handler := api.New(backend, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		DevMode:         ctx.Bool(devFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger: apiLogs,
	})

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("API server stopped", "err", err)
		}
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func startMetricsServer(addr string) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	handler := handlers.CompressHandler(router)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/metrics", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func startAdminServer(addr string, logLevel *slog.LevelVar, apiLogs *atomic.Bool) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admin API addr [%v]", addr)
	}

	srv := &http.Server{Handler: admin.New(logLevel, apiLogs), ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String() + "/admin", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func printStartupMessage(ctx *cli.Context, f *builtin.Farm, apiURL string) {
	dataDir := "Memory"
	if ctx.Bool(persistFlag.Name) {
		dataDir = ctx.String(dataDirFlag.Name)
	}
	pools, _ := f.Registry().Pools()
	rate, _ := f.Registry().EmissionRate()

	fmt.Printf(`Starting %v
    Pools        [ %v ]
    EmissionRate [ %v ]
    Data dir     [ %v ]
    API portal   [ %v ]
    Dev mode     [ %v ]
`,
		fullVersion(),
		len(pools),
		rate,
		dataDir,
		apiURL,
		ctx.Bool(devFlag.Name))
}
