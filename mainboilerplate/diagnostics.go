package mainboilerplate

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// MetricsConfig configures the export of run metrics.
type MetricsConfig struct {
	File string `long:"file" env:"FILE" description:"Path to which run metrics are written, in the Prometheus text exposition format, at completion"`
}

// WriteMetrics writes all metrics of |gatherer| to the configured File,
// if there is one. The file is written atomically, which suits the textfile
// collector of the Prometheus node exporter.
func WriteMetrics(cfg MetricsConfig, gatherer prometheus.Gatherer) error {
	if cfg.File == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(cfg.File, gatherer); err != nil {
		return errors.WithMessage(err, "writing metrics")
	}
	log.WithField("path", cfg.File).Debug("wrote run metrics")
	return nil
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}
