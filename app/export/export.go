/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/pkg/capture"
)

const filePrefix = "fitai_metrics_"

// Archive stores a serialized metrics document under objectName
type Archive interface {
	Write(ctx context.Context, objectName string, data []byte) error
}

// Filename is the name a metrics document is stored under
func Filename(t time.Time) string {
	return fmt.Sprintf("%s%d.json", filePrefix, t.UnixNano()/int64(time.Millisecond))
}

// Marshal serializes a metrics document the way it is written and posted
func Marshal(doc *capture.CaptureMetrics) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// DirArchive writes documents into a local directory
type DirArchive struct {
	Dir string
}

func (archive DirArchive) Write(ctx context.Context, objectName string, data []byte) error {
	if err := os.MkdirAll(archive.Dir, 0755); err != nil {
		return errors.Wrapf(err, "unable to create %s", archive.Dir)
	}
	path := filepath.Join(archive.Dir, objectName)
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}
	log.Debugf("metrics written to %s", path)
	return nil
}

// Exporter writes each metrics document to a local file, then posts it to
// the metrics endpoint. Both steps are best-effort.
type Exporter struct {
	Local    Archive
	Endpoint string
	Client   *http.Client
	Now      func() time.Time

	mExported   metrics.Counter
	mFileErrors metrics.Counter
	mPostErrors metrics.Counter
}

// NewExporter builds an Exporter that posts to endpoint
func NewExporter(local Archive, endpoint string, timeout time.Duration) *Exporter {
	return &Exporter{
		Local:       local,
		Endpoint:    endpoint,
		Client:      &http.Client{Timeout: timeout},
		Now:         time.Now,
		mExported:   metrics.GetOrRegisterCounter("fitai-scan-service.Export.Exported", nil),
		mFileErrors: metrics.GetOrRegisterCounter("fitai-scan-service.Export.FileError", nil),
		mPostErrors: metrics.GetOrRegisterCounter("fitai-scan-service.Export.PostError", nil),
	}
}

// Export never fails the capture; problems are logged and counted
func (exporter *Exporter) Export(ctx context.Context, doc *capture.CaptureMetrics) error {
	body, err := Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "unable to marshal capture metrics")
	}

	if exporter.Local != nil {
		if err := exporter.Local.Write(ctx, Filename(exporter.Now()), body); err != nil {
			exporter.mFileErrors.Inc(1)
			log.Errorf("unable to save metrics file: %v", err)
		}
	}

	if exporter.Endpoint == "" {
		exporter.mExported.Inc(1)
		return nil
	}
	if err := exporter.post(ctx, body); err != nil {
		exporter.mPostErrors.Inc(1)
		return nil
	}
	exporter.mExported.Inc(1)
	return nil
}

func (exporter *Exporter) post(ctx context.Context, body []byte) error {
	request, err := http.NewRequest(http.MethodPost, exporter.Endpoint, bytes.NewReader(body))
	if err != nil {
		log.Errorf("metrics POST failed: %v", err)
		return err
	}
	request = request.WithContext(ctx)
	request.Header.Set("Content-Type", "application/json")

	response, err := exporter.Client.Do(request)
	if err != nil {
		log.WithFields(log.Fields{
			"Method":   "Export",
			"Endpoint": exporter.Endpoint,
		}).Errorf("metrics POST failed: %v", err)
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		text, _ := ioutil.ReadAll(io.LimitReader(response.Body, 512))
		err = fmt.Errorf("POST error on metrics endpoint, StatusCode %d", response.StatusCode)
		log.WithFields(log.Fields{
			"Method":   "Export",
			"Endpoint": exporter.Endpoint,
			"Response": string(text),
		}).Warn(err.Error())
		return err
	}

	log.WithField("Method", "Export").Info("metrics posted")
	return nil
}
