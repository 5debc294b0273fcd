package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gexflow/config"
	"gexflow/internal/schwabauth"
	"gexflow/logger"
	"gexflow/processor"
	"gexflow/reader/schwab"
	"gexflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single computation cycle and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolvePath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Logging.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Logging.CloudWatch.Region, cfg.Logging.CloudWatch.Namespace)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Gexflow.Name,
		"version": cfg.Gexflow.Version,
	}).Info("starting gexflow")

	params, err := cfg.Levels.Params()
	if err != nil {
		log.WithError(err).Error("invalid levels configuration")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens := schwabauth.NewFileTokenSource(schwabauth.Options{
		Path:      cfg.Schwab.TokenFile,
		TokenURL:  cfg.Schwab.TokenURL,
		AppKey:    cfg.Schwab.AppKey,
		AppSecret: cfg.Schwab.AppSecret,
		Timeout:   cfg.Schwab.Timeout.Std(),
	})
	reader := schwab.NewReader(cfg.Schwab, tokens)

	reportWriter := writer.NewReportWriter(cfg.Writer.Report)
	archiveWriter := writer.NewArchiveWriter(cfg.Writer.Archive)

	var s3Writer *writer.S3Writer
	if cfg.Storage.S3.Enabled {
		s3Writer, err = writer.NewS3Writer(ctx, cfg.Storage.S3, cfg.Writer.Archive.Compression)
		if err != nil {
			log.WithError(err).Error("failed to create S3 writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping upload writer")
	}

	app := &pipeline{
		cfg:           cfg,
		params:        params,
		reader:        reader,
		reportWriter:  reportWriter,
		archiveWriter: archiveWriter,
		s3Writer:      s3Writer,
		log:           log,
	}

	if *once {
		if err := app.runCycle(ctx); err != nil {
			log.WithError(err).Error("computation cycle failed")
			os.Exit(1)
		}
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := cfg.Scheduler.Interval.Std()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithFields(logger.Fields{"interval": interval}).Info("scheduler started")

	// Produce levels immediately instead of waiting out the first interval.
	if err := app.runCycle(ctx); err != nil {
		app.handleCycleError(err)
	}

	for {
		select {
		case sig := <-sigChan:
			log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
			cancel()
			log.Info("gexflow stopped")
			return
		case <-ticker.C:
			if err := app.runCycle(ctx); err != nil {
				app.handleCycleError(err)
			}
		}
	}
}

type pipeline struct {
	cfg           *config.Config
	params        processor.Params
	reader        *schwab.Reader
	reportWriter  *writer.ReportWriter
	archiveWriter *writer.ArchiveWriter
	s3Writer      *writer.S3Writer
	log           *logger.Log
}

// runCycle performs one fetch-compute-write pass.
func (p *pipeline) runCycle(ctx context.Context) error {
	log := p.log.WithComponent("pipeline")
	start := time.Now()

	snap, err := p.reader.FetchChain(ctx, p.cfg.Schwab.ChainHorizon.Std())
	if err != nil {
		return err
	}

	if price, err := p.reader.FetchFuturesQuote(ctx); err != nil {
		log.WithError(err).Warn("futures quote unavailable, falling back to static ratio")
	} else {
		snap.CorrelatedPrice = price
	}

	result, err := processor.Compute(snap, p.params)
	if err != nil {
		return err
	}

	if err := p.reportWriter.Write(result); err != nil {
		log.WithError(err).Warn("failed to write report")
	}
	if err := p.archiveWriter.Write(result); err != nil {
		log.WithError(err).Warn("failed to write archive")
	}
	if p.s3Writer != nil {
		if err := p.s3Writer.Write(ctx, result); err != nil {
			log.WithError(err).Warn("failed to upload archive")
		}
	}

	duration := time.Since(start)
	log.WithFields(logger.Fields{
		"computation_id": result.ComputationID,
		"symbol":         result.Symbol,
		"strikes":        len(result.Strikes),
		"degraded":       result.Degraded,
		"substituted":    result.Substituted,
		"duration_ms":    duration.Milliseconds(),
	}).Info("computation cycle completed")

	p.log.LogMetric("pipeline", "cycle_duration_ms", duration.Milliseconds(), "gauge", logger.Fields{
		"symbol": result.Symbol,
	})
	p.log.LogMetric("pipeline", "strikes_computed", int64(len(result.Strikes)), "counter", logger.Fields{
		"symbol": result.Symbol,
	})

	return nil
}

// handleCycleError keeps the scheduler alive through transient failures but
// aborts when the operator has to reauthorize.
func (p *pipeline) handleCycleError(err error) {
	log := p.log.WithComponent("pipeline")

	if errors.Is(err, schwabauth.ErrReauthRequired) {
		log.WithError(err).Error("authorization expired; run the interactive flow to obtain new tokens")
		os.Exit(1)
	}

	var dataErr *processor.DataError
	if errors.As(err, &dataErr) {
		log.WithError(err).Warn("snapshot unusable, skipping cycle")
		return
	}

	log.WithError(err).Warn("computation cycle failed")
}
