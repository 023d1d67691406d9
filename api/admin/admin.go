// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin serves the runtime switches of a farm process: the log level and the
// api request logs.
package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func New(logLevel *slog.LevelVar, apiLogs *atomic.Bool) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	newLogLevel(logLevel).Mount(sub, "/loglevel")
	newAPILogs(apiLogs).Mount(sub, "/apilogs")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
