package artifact

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"didbase/internal/didbase"
	"didbase/internal/types"
)

// EncodeFunc writes an artifact. It exists so tests can substitute a faulty
// writer and exercise verification.
type EncodeFunc func(w io.Writer, a *Artifact) error

// Converter turns raw DIDBase text into verified binary artifacts.
type Converter struct {
	encode EncodeFunc
	logger *slog.Logger
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithEncoder overrides the artifact writer.
func WithEncoder(fn EncodeFunc) ConverterOption {
	return func(c *Converter) {
		c.encode = fn
	}
}

// NewConverter creates a Converter.
func NewConverter(logger *slog.Logger, opts ...ConverterOption) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Converter{encode: Encode, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert parses rawPath and writes the unit's artifact to artifactPath.
//
// If artifactPath already exists it is returned untouched. Otherwise the
// artifact is written, read back and compared with the in-memory version.
// The raw text is deleted only after that comparison succeeds; on mismatch
// the written artifact is deleted, the raw text is kept, and an
// ErrCodeVerification error is returned.
func (c *Converter) Convert(rawPath, artifactPath string, unit types.FetchUnit, sourceURL string) (string, error) {
	if _, err := os.Stat(artifactPath); err == nil {
		c.logger.Debug("artifact exists, skipping conversion", "path", artifactPath, "unit", unit.Stem())
		return artifactPath, nil
	}

	parsed, err := parseFile(rawPath)
	if err != nil {
		return "", err
	}
	if rejected := parsed.RejectedCount(); rejected > 0 {
		c.logger.Info("dropped malformed lines",
			"unit", unit.Stem(),
			"rejected", rejected,
			"field_count", parsed.Rejected[didbase.ReasonFieldCount],
			"non_numeric", parsed.Rejected[didbase.ReasonNonNumeric],
			"non_finite", parsed.Rejected[didbase.ReasonNonFinite],
			"bad_timestamp", parsed.Rejected[didbase.ReasonBadTimestamp],
		)
	}

	a := FromMeasurements(Metadata{
		Station:     unit.Station,
		DMUF:        unit.DMUF,
		PeriodStart: unit.PeriodStart,
		PeriodEnd:   unit.PeriodEnd,
		Source: Provenance{
			URL:             sourceURL,
			Header:          parsed.Header,
			ReportedStation: parsed.Station,
			Location:        parsed.Location,
			Instrument:      parsed.Instrument,
			Acknowledgement: Acknowledgement,
			RejectedLines:   parsed.RejectedCount(),
		},
	}, parsed.Rows)

	if err := c.write(artifactPath, a); err != nil {
		return "", err
	}

	if diff, err := c.verify(artifactPath, a); err != nil || diff != "" {
		// The written file cannot be trusted; remove it so the next call
		// regenerates it from a fresh fetch.
		_ = os.Remove(artifactPath)
		msg := "artifact read-back does not match written data"
		if err != nil {
			msg = fmt.Sprintf("artifact read-back failed: %v", err)
		}
		c.logger.Error("artifact verification failed",
			"path", artifactPath,
			"unit", unit.Stem(),
			"diff", diff,
			"error", err,
		)
		return "", types.NewAppErrorWithDetails(types.ErrCodeVerification, msg, err, map[string]any{
			"path":  artifactPath,
			"raw":   rawPath,
			"diff":  diff,
			"stage": "convert",
		})
	}

	if err := os.Remove(rawPath); err != nil && !os.IsNotExist(err) {
		return "", types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("removing raw text %s", rawPath), err,
			map[string]any{"path": rawPath, "stage": "convert"})
	}

	c.logger.Info("artifact written",
		"path", artifactPath,
		"unit", unit.Stem(),
		"rows", len(a.Times),
	)
	return artifactPath, nil
}

func parseFile(path string) (*didbase.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("opening raw text %s", path), err,
			map[string]any{"path": path, "stage": "parse"})
	}
	defer f.Close()

	parsed, err := didbase.Parse(f)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("reading raw text %s", path), err,
			map[string]any{"path": path, "stage": "parse"})
	}
	return parsed, nil
}

// write stores a via a temp file in the destination directory and renames it
// into place.
func (c *Converter) write(path string, a *Artifact) error {
	ioErr := func(msg string, err error) error {
		return types.NewAppErrorWithDetails(types.ErrCodeCacheIO, msg, err,
			map[string]any{"path": path, "stage": "write"})
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return ioErr("creating temp artifact", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := c.encode(bw, a); err != nil {
		tmp.Close()
		return ioErr("encoding artifact", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return ioErr("flushing artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ioErr("syncing artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("closing artifact", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ioErr("renaming artifact into place", err)
	}
	return nil
}

// verify reads path back and returns a non-empty diff if it differs from want.
func (c *Converter) verify(path string, want *Artifact) (string, error) {
	got, err := Load(path)
	if err != nil {
		return "", err
	}
	return cmp.Diff(want, got, cmpopts.EquateEmpty()), nil
}

// Load reads the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeCacheIO,
			fmt.Sprintf("opening artifact %s", path), err,
			map[string]any{"path": path, "stage": "load"})
	}
	defer f.Close()

	a, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeArtifactCorrupt,
			fmt.Sprintf("decoding artifact %s", path), err,
			map[string]any{"path": path, "stage": "load"})
	}
	return a, nil
}
