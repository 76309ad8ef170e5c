/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package main

import (
	"fmt"
	"io"
	golog "log"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

func fatalErrorHandler(message string, err error, errorGauge *metrics.Gauge) {
	if err == nil {
		return
	}
	if errorGauge != nil {
		(*errorGauge).Update(1)
	}
	log.WithFields(log.Fields{
		"Method": "main",
		"Error":  fmt.Sprintf("%+v", err),
	}).Fatal(message)
}

// setLoggingLevel accepts any logrus level name and falls back to info
func setLoggingLevel(loggingLevel string) {
	level, err := log.ParseLevel(loggingLevel)
	if err != nil {
		golog.Printf("Unknown logging level %q, using info\n", loggingLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	// Not using filtered func (Info, etc ) so that message is always logged
	golog.Printf("Logging level set to %s\n", level)
}

// closeOnExit is deferred for long lived resources
func closeOnExit(name string, closer io.Closer) {
	if err := closer.Close(); err != nil {
		log.WithFields(log.Fields{
			"Method":   "main",
			"Resource": name,
		}).Errorf("unable to close: %v", err)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// frameInterval is one frame period at fps, zero when fps is unset
func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}
