package cache

import (
	"io/fs"
	"os"
	"time"
)

// MinArtifactSize is the byte size a cached file must exceed to be trusted.
// Smaller files are treated as truncated.
const MinArtifactSize = 1000

// Verdict records why a cached file was judged fresh or stale.
type Verdict string

const (
	VerdictFresh               Verdict = "fresh"
	VerdictForced              Verdict = "forced"
	VerdictMissing             Verdict = "missing"
	VerdictTooSmall            Verdict = "too_small"
	VerdictCapturedBeforeBound Verdict = "captured_before_bound"
	VerdictNotRegularFile      Verdict = "not_regular_file"
)

// Fresh reports whether the verdict allows reuse.
func (v Verdict) Fresh() bool {
	return v == VerdictFresh
}

// StatFunc matches os.Stat and allows injection for testing.
type StatFunc func(name string) (fs.FileInfo, error)

// Oracle judges cached files against a time bound.
type Oracle struct {
	stat StatFunc
}

// NewOracle returns an Oracle backed by os.Stat.
func NewOracle() *Oracle {
	return &Oracle{stat: os.Stat}
}

// NewOracleWithStat returns an Oracle using a custom stat function.
func NewOracleWithStat(stat StatFunc) *Oracle {
	return &Oracle{stat: stat}
}

// Judge returns the freshness verdict for path. A file is fresh when it
// exceeds MinArtifactSize and was last modified strictly after bound, i.e.
// it was captured after the period of interest closed. force always yields
// a stale verdict.
func (o *Oracle) Judge(path string, bound time.Time, force bool) Verdict {
	if force {
		return VerdictForced
	}
	info, err := o.stat(path)
	if err != nil {
		return VerdictMissing
	}
	if !info.Mode().IsRegular() {
		return VerdictNotRegularFile
	}
	if info.Size() <= MinArtifactSize {
		return VerdictTooSmall
	}
	if !info.ModTime().After(bound) {
		return VerdictCapturedBeforeBound
	}
	return VerdictFresh
}

// IsFresh is shorthand for Judge(...).Fresh() using os.Stat.
func IsFresh(path string, bound time.Time, force bool) bool {
	return NewOracle().Judge(path, bound, force).Fresh()
}
