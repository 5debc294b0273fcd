package writer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	"gexflow/config"
	"gexflow/logger"
	"gexflow/models"
)

// StrikeRecord is the parquet row layout for one strike of a computation.
type StrikeRecord struct {
	ComputationID string  `parquet:"name=computation_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol        string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	GeneratedAt   int64   `parquet:"name=generated_at, type=INT64"`
	Strike        float64 `parquet:"name=strike, type=DOUBLE"`
	CallOI        int64   `parquet:"name=call_oi, type=INT64"`
	PutOI         int64   `parquet:"name=put_oi, type=INT64"`
	CallGamma     float64 `parquet:"name=call_gamma, type=DOUBLE"`
	PutGamma      float64 `parquet:"name=put_gamma, type=DOUBLE"`
	CallExposure  float64 `parquet:"name=call_exposure, type=DOUBLE"`
	PutExposure   float64 `parquet:"name=put_exposure, type=DOUBLE"`
	NetExposure   float64 `parquet:"name=net_exposure, type=DOUBLE"`
}

// memoryParquetFile implements source.ParquetFile over an in-memory buffer
// so parquet bytes can be produced without touching disk.
type memoryParquetFile struct {
	buffer *bytes.Buffer
}

func newMemoryParquetFile() *memoryParquetFile {
	return &memoryParquetFile{buffer: &bytes.Buffer{}}
}

func (m *memoryParquetFile) Create(name string) (source.ParquetFile, error) { return m, nil }
func (m *memoryParquetFile) Open(name string) (source.ParquetFile, error)   { return m, nil }

func (m *memoryParquetFile) Seek(offset int64, whence int) (int64, error) {
	// Append-only writing never needs to reposition.
	return int64(m.buffer.Len()), nil
}

func (m *memoryParquetFile) Read(b []byte) (int, error)  { return m.buffer.Read(b) }
func (m *memoryParquetFile) Write(b []byte) (int, error) { return m.buffer.Write(b) }
func (m *memoryParquetFile) Close() error                { return nil }
func (m *memoryParquetFile) Bytes() []byte               { return m.buffer.Bytes() }

// EncodeParquet serializes the per-strike aggregates of one computation into
// a parquet file in memory.
func EncodeParquet(res *models.ComputationResult, compression string) ([]byte, error) {
	fw := newMemoryParquetFile()

	pw, err := parquetwriter.NewParquetWriter(fw, new(StrikeRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	switch compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	generatedAt := res.GeneratedAt.UTC().UnixMilli()
	for _, agg := range res.Strikes {
		record := StrikeRecord{
			ComputationID: res.ComputationID,
			Symbol:        res.Symbol,
			GeneratedAt:   generatedAt,
			Strike:        agg.Strike,
			CallOI:        agg.CallOI,
			PutOI:         agg.PutOI,
			CallGamma:     agg.CallGamma,
			PutGamma:      agg.PutGamma,
			CallExposure:  agg.CallExposure,
			PutExposure:   agg.PutExposure,
			NetExposure:   agg.NetExposure(),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}

	return fw.Bytes(), nil
}

// ArchiveKey names the parquet object for one computation, partitioned by
// symbol and date.
func ArchiveKey(res *models.ComputationResult) string {
	ts := res.GeneratedAt.UTC()
	filename := fmt.Sprintf("%s_levels_%s.parquet", res.Symbol, ts.Format("20060102150405"))
	key := filepath.Join(
		fmt.Sprintf("symbol=%s", res.Symbol),
		fmt.Sprintf("date=%s", ts.Format("2006-01-02")),
		filename,
	)
	return filepath.ToSlash(key)
}

// ArchiveWriter persists parquet archives to a local directory.
type ArchiveWriter struct {
	cfg config.ArchiveConfig
	log *logger.Log
}

func NewArchiveWriter(cfg config.ArchiveConfig) *ArchiveWriter {
	return &ArchiveWriter{cfg: cfg, log: logger.GetLogger()}
}

// Write encodes the computation and stores it under the archive directory.
func (w *ArchiveWriter) Write(res *models.ComputationResult) error {
	if !w.cfg.Enabled {
		return nil
	}

	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"computation_id": res.ComputationID,
		"symbol":         res.Symbol,
	})

	data, err := EncodeParquet(res, w.cfg.Compression)
	if err != nil {
		return err
	}

	path := filepath.Join(w.cfg.Directory, filepath.FromSlash(ArchiveKey(res)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive file %s: %w", path, err)
	}

	log.WithFields(logger.Fields{
		"path":        path,
		"file_size":   len(data),
		"strikes":     len(res.Strikes),
		"compression": w.cfg.Compression,
	}).Info("archive written")

	return nil
}
