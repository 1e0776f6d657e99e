package artifact

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didbase/internal/types"
)

// testLogger returns a logger that only reports errors.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const rawJanuary = `# Global Ionospheric Radio Observatory
# GIRO Info Center, Lowell Digisonde International
# http://giro.uml.edu/
#
# Location: GEO 23.0N 72.5E, URSI-Code AH223 AHMEDABAD
# Instrument: Digisonde DPS-4D
# Query for measurement intervals of time:
# 2012.01.01 00:00:00 - 2012.02.01 00:00:00
#
#Time                     CS   foF2 QD  MUFD QD  hmF2 QD   TEC QD    B0 QD
2012-01-15T00:00:00.000Z  90  6.125 //  17.43 // 281.6 //  12.4 //  98.0 //
2012-01-15T00:15:00.000Z  85  6.200 //  17.80 // 279.2 //  12.9 //  97.5 //
2012-01-15T00:30:00.000Z  70  6.350 //  ---   // 275.0 //  13.1 //  96.0 //
2012-01-15T00:45:00.000Z 999  6.400 //  18.30 // 272.8 //  13.4 //  95.1 //
`

func setupRaw(t *testing.T) (dir, raw, out string, unit types.FetchUnit) {
	t.Helper()
	dir = t.TempDir()
	unit = types.NewFetchUnit("AH223", 2012, time.January, 3000)
	raw = filepath.Join(dir, unit.Stem()+".txt")
	out = filepath.Join(dir, unit.Stem()+".didb")
	require.NoError(t, os.WriteFile(raw, []byte(rawJanuary), 0o644))
	return dir, raw, out, unit
}

func TestConvertWritesVerifiedArtifact(t *testing.T) {
	_, raw, out, unit := setupRaw(t)

	path, err := NewConverter(testLogger()).Convert(raw, out, unit, "https://example.invalid/q")
	require.NoError(t, err)
	assert.Equal(t, out, path)

	// raw text is deleted after verified conversion
	_, err = os.Stat(raw)
	assert.True(t, os.IsNotExist(err))

	a, err := Load(out)
	require.NoError(t, err)
	assert.Len(t, a.Times, 3)
	assert.Equal(t, "AH223", a.Meta.Station)
	assert.Equal(t, "AH223", a.Meta.Source.ReportedStation)
	assert.Equal(t, "Digisonde DPS-4D", a.Meta.Source.Instrument)
	assert.Equal(t, 1, a.Meta.Source.RejectedLines)
	assert.Equal(t, "https://example.invalid/q", a.Meta.Source.URL)
	assert.Len(t, a.Meta.Source.Header, 10)

	s := a.Series()
	tec := s.Field("TEC").Values
	assert.InDeltaSlice(t, []float64{12.4e16, 12.9e16, 13.4e16}, tec, 1e3)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(1000))

	// no temp files left behind
	matches, _ := filepath.Glob(out + ".*.tmp")
	assert.Empty(t, matches)
}

func TestConvertSkipsExistingArtifact(t *testing.T) {
	_, raw, out, unit := setupRaw(t)
	require.NoError(t, os.WriteFile(out, []byte("existing"), 0o644))

	calls := 0
	conv := NewConverter(testLogger(), WithEncoder(func(w io.Writer, a *Artifact) error {
		calls++
		return Encode(w, a)
	}))

	path, err := conv.Convert(raw, out, unit, "")
	require.NoError(t, err)
	assert.Equal(t, out, path)
	assert.Zero(t, calls)

	data, _ := os.ReadFile(out)
	assert.Equal(t, "existing", string(data))
	_, err = os.Stat(raw)
	assert.NoError(t, err, "raw text should be untouched")
}

func TestConvertVerificationFailure(t *testing.T) {
	_, raw, out, unit := setupRaw(t)

	// Writes a valid artifact whose contents differ from the in-memory one.
	corrupting := func(w io.Writer, a *Artifact) error {
		cp := *a
		cp.Values = make([][]float64, len(a.Values))
		for c := range a.Values {
			cp.Values[c] = append([]float64(nil), a.Values[c]...)
		}
		cp.Values[0][0]++
		return Encode(w, &cp)
	}

	_, err := NewConverter(testLogger(), WithEncoder(corrupting)).Convert(raw, out, unit, "")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeVerification))

	appErr, _ := types.AsAppError(err)
	assert.Equal(t, out, appErr.Detail("path"))
	assert.NotEmpty(t, appErr.Detail("diff"))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "corrupt artifact must be deleted")
	_, statErr = os.Stat(raw)
	assert.NoError(t, statErr, "raw text must be retained on failure")
}

func TestConvertUnreadableArtifact(t *testing.T) {
	_, raw, out, unit := setupRaw(t)

	garbage := func(w io.Writer, _ *Artifact) error {
		_, err := w.Write([]byte("not an artifact at all"))
		return err
	}

	_, err := NewConverter(testLogger(), WithEncoder(garbage)).Convert(raw, out, unit, "")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeVerification))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(raw)
	assert.NoError(t, statErr)
}

func TestConvertEncodeError(t *testing.T) {
	_, raw, out, unit := setupRaw(t)

	failing := func(io.Writer, *Artifact) error { return errors.New("disk full") }
	_, err := NewConverter(testLogger(), WithEncoder(failing)).Convert(raw, out, unit, "")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeCacheIO))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(raw)
	assert.NoError(t, statErr)
}

func TestConvertMissingRaw(t *testing.T) {
	dir := t.TempDir()
	unit := types.NewFetchUnit("AH223", 2012, time.January, 3000)
	_, err := NewConverter(testLogger()).Convert(filepath.Join(dir, "absent.txt"), filepath.Join(dir, "x.didb"), unit, "")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeCacheIO))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.didb")
	require.NoError(t, os.WriteFile(path, []byte("DIDBgarbage"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeArtifactCorrupt))
}

func TestConvertNonUTF8Header(t *testing.T) {
	dir := t.TempDir()
	unit := types.NewFetchUnit("JI91J", 2012, time.January, 3000)
	raw := filepath.Join(dir, unit.Stem()+".txt")
	out := filepath.Join(dir, unit.Stem()+".didb")
	text := "# Location: GEO 12.0S 76.8W, URSI-Code JI91J Jicamarca Per\xfa\n" +
		"# Instrument: Digisonde DPS-4D\n" +
		"2012-01-15T00:00:00.000Z  90  6.125 //  17.43 // 281.6 //  12.4 //  98.0 //\n"
	require.NoError(t, os.WriteFile(raw, []byte(text), 0o644))

	_, err := NewConverter(testLogger()).Convert(raw, out, unit, "")
	require.NoError(t, err)

	_, err = os.Stat(raw)
	assert.True(t, os.IsNotExist(err))

	a, err := Load(out)
	require.NoError(t, err)
	assert.Len(t, a.Times, 1)
	assert.Equal(t, "JI91J", a.Meta.Source.ReportedStation)
	assert.Equal(t, "GEO 12.0S 76.8W, URSI-Code JI91J Jicamarca Per\uFFFD", a.Meta.Source.Location)
}
