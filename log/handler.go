// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// levelHandler drops records below the current value of lvl and passes the rest to next.
// next itself is built to accept every level.
type levelHandler struct {
	lvl  *slog.LevelVar
	next slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.lvl.Level() && h.next.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.lvl.Level() {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{lvl: h.lvl, next: h.next.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{lvl: h.lvl, next: h.next.WithGroup(name)}
}

// NewTerminalHandler returns a human friendly handler which drops records below lvl.
// lvl may be changed while the handler is in use.
//
//	[LEVEL] [TIME] MESSAGE key=value key=value ...
func NewTerminalHandler(wr io.Writer, lvl *slog.LevelVar, useColor bool) slog.Handler {
	return &levelHandler{
		lvl:  lvl,
		next: ethlog.NewTerminalHandlerWithLevel(wr, LvlTrace, useColor),
	}
}

// JSONHandler returns a handler which prints records of every level as JSON lines.
func JSONHandler(wr io.Writer) slog.Handler {
	return ethlog.JSONHandler(wr)
}

// NewJSONHandler returns a JSON handler which drops records below lvl.
func NewJSONHandler(wr io.Writer, lvl *slog.LevelVar) slog.Handler {
	return &levelHandler{
		lvl:  lvl,
		next: ethlog.JSONHandlerWithLevel(wr, LvlTrace),
	}
}

// DiscardHandler returns a no-op handler.
func DiscardHandler() slog.Handler {
	return ethlog.DiscardHandler()
}
