/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package camera

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/fitai/fitai-scan-service/pkg/capture"
)

// SnapshotExporter writes the rendered capture frame as a JPEG next to the
// metrics documents and then hands the metrics to Next
type SnapshotExporter struct {
	Next    capture.Exporter
	Display *Display
	Dir     string
}

func (exporter *SnapshotExporter) Export(ctx context.Context, metrics *capture.CaptureMetrics) error {
	if metrics.Method == capture.MethodAutoHold {
		if mat, ok := exporter.Display.Capture(); ok {
			filename := filepath.Join(exporter.Dir, snapshotName(metrics.Timestamp))
			if !gocv.IMWrite(filename, mat) {
				logrus.Errorf("unable to write capture snapshot %s", filename)
			} else {
				logrus.WithFields(logrus.Fields{
					"Method": "SnapshotExporter.Export",
					"File":   filename,
				}).Info("capture snapshot saved")
			}
			safeClose(&mat)
		}
	}
	return exporter.Next.Export(ctx, metrics)
}

// snapshotName derives the file name from the metrics timestamp so both files sort together
func snapshotName(timestamp string) string {
	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		t = time.Now()
	}
	return "fitai_snapshot_" + t.UTC().Format("20060102T150405.000") + ".jpg"
}
