// Package writer turns computation results into human readable reports and
// parquet archives, locally and on S3.
package writer

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gexflow/config"
	"gexflow/logger"
	"gexflow/models"
)

// ReportWriter prints a level report to the console and optionally appends
// it to a text file.
type ReportWriter struct {
	cfg config.ReportConfig
	log *logger.Log
}

func NewReportWriter(cfg config.ReportConfig) *ReportWriter {
	return &ReportWriter{cfg: cfg, log: logger.GetLogger()}
}

// Write renders the report for one computation.
func (w *ReportWriter) Write(res *models.ComputationResult) error {
	report := FormatReport(res)

	if w.cfg.Console {
		fmt.Println(report)
	}

	if w.cfg.File != "" {
		f, err := os.OpenFile(w.cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open report file %s: %w", w.cfg.File, err)
		}
		defer f.Close()
		if _, err := fmt.Fprintln(f, report); err != nil {
			return fmt.Errorf("append report to %s: %w", w.cfg.File, err)
		}
		w.log.WithComponent("report_writer").WithFields(logger.Fields{
			"file":           w.cfg.File,
			"computation_id": res.ComputationID,
		}).Info("report appended")
	}

	return nil
}

// FormatReport renders a ComputationResult as a fixed-width text block.
func FormatReport(res *models.ComputationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s gamma exposure levels ===\n", res.Symbol)
	fmt.Fprintf(&b, "generated: %s  computation: %s\n",
		res.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"), res.ComputationID)
	fmt.Fprintf(&b, "underlying price: %.2f\n", res.Levels.UnderlyingPrice)
	if res.Degraded {
		b.WriteString("WARNING: no strike passed the activity filter; all levels defaulted to spot\n")
	}
	if res.Substituted {
		b.WriteString("NOTE: requested expiration scope unavailable; nearest expiration used\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %-22s %12.2f\n", "call OI wall:", res.Levels.CallOI)
	fmt.Fprintf(&b, "  %-22s %12.2f\n", "put OI wall:", res.Levels.PutOI)
	fmt.Fprintf(&b, "  %-22s %12.2f\n", "positive exposure max:", res.Levels.PositiveExposure)
	fmt.Fprintf(&b, "  %-22s %12.2f\n", "negative exposure min:", res.Levels.NegativeExposure)
	fmt.Fprintf(&b, "  %-22s %12.2f\n", "zero gamma:", res.Levels.ZeroCrossing)
	fmt.Fprintf(&b, "  %-22s %15s\n", "net exposure:", groupDigits(int64(res.Levels.NetExposure)))
	b.WriteString("\n")

	m := res.Mapped
	fmt.Fprintf(&b, "mapped levels (ratio %.4f %s, tick %d):\n", m.Ratio.Value, m.Ratio.Source, m.TickSize)
	fmt.Fprintf(&b, "  %-22s %12s\n", "call OI wall:", groupDigits(m.CallOI))
	fmt.Fprintf(&b, "  %-22s %12s\n", "put OI wall:", groupDigits(m.PutOI))
	fmt.Fprintf(&b, "  %-22s %12s\n", "positive exposure max:", groupDigits(m.PositiveExposure))
	fmt.Fprintf(&b, "  %-22s %12s\n", "negative exposure min:", groupDigits(m.NegativeExposure))
	fmt.Fprintf(&b, "  %-22s %12s\n", "zero gamma:", groupDigits(m.ZeroCrossing))
	fmt.Fprintf(&b, "  %-22s %12s\n", "spot:", groupDigits(m.Spot))

	return b.String()
}

// groupDigits formats an integer with comma separated thousands.
func groupDigits(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
