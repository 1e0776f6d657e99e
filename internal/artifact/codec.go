// Package artifact implements the durable binary cache artifact for one
// fetch unit and the verified conversion from raw DIDBase text.
//
// File layout (all integers little-endian):
//
//	magic     [4]byte  "DIDB"
//	version   uint16
//	metaLen   uint32
//	meta      [metaLen]byte   JSON-encoded Metadata
//	body      zstd frame of:
//	            rows   uint32
//	            times  [rows]int64          unix nanoseconds, UTC
//	            values [cols][rows]float64  one block per column, Metadata.Columns order
package artifact

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"didbase/internal/didbase"
	"didbase/internal/series"
	"didbase/internal/types"
)

const (
	// FormatVersion is bumped whenever the layout changes.
	FormatVersion uint16 = 1

	int64ByteSize   = 8
	float64ByteSize = 8

	// maxMetaLen guards against allocating for a corrupt length prefix.
	maxMetaLen = 16 << 20
)

var magic = [4]byte{'D', 'I', 'D', 'B'}

// Acknowledgement is attached to every artifact as the data usage statement.
const Acknowledgement = "Data provided by the Global Ionospheric Radio Observatory (GIRO) " +
	"through the Lowell DIDBase. Users should acknowledge GIRO, the Lowell GIRO Data Center " +
	"and the operator of the observing station in any publication or product derived from these data."

// Provenance describes where the artifact's rows came from.
type Provenance struct {
	URL             string   `json:"url,omitempty"`
	Header          []string `json:"header,omitempty"`
	ReportedStation string   `json:"reported_station,omitempty"`
	Location        string   `json:"location,omitempty"`
	Instrument      string   `json:"instrument,omitempty"`
	Acknowledgement string   `json:"acknowledgement"`
	RejectedLines   int      `json:"rejected_lines"`
}

// Metadata is the JSON header of an artifact.
type Metadata struct {
	Station     string           `json:"station"`
	DMUF        int              `json:"dmuf"`
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	Columns     []didbase.Column `json:"columns"`
	Rows        int              `json:"rows"`
	Source      Provenance       `json:"source"`
}

// Artifact is the in-memory form of one unit's cached data.
// Values[c][r] is column c (Metadata.Columns order) at row r.
type Artifact struct {
	Meta   Metadata
	Times  []time.Time
	Values [][]float64
}

// FromMeasurements builds column-major storage from parsed rows using the
// fixed didbase.Columns layout.
func FromMeasurements(meta Metadata, rows []types.Measurement) *Artifact {
	meta.Columns = append([]didbase.Column(nil), didbase.Columns...)
	meta.Rows = len(rows)

	a := &Artifact{
		Meta:   meta,
		Times:  make([]time.Time, len(rows)),
		Values: make([][]float64, len(meta.Columns)),
	}
	for c := range a.Values {
		a.Values[c] = make([]float64, len(rows))
	}
	for r, m := range rows {
		a.Times[r] = m.Time.UTC()
		for c, col := range meta.Columns {
			a.Values[c][r] = measurementField(m, col.Name)
		}
	}
	return a
}

func measurementField(m types.Measurement, name string) float64 {
	switch name {
	case "hmF2":
		return m.HmF2
	case "foF2":
		return m.FoF2
	case "TEC":
		return m.TEC
	case "MUFD":
		return m.MUFD
	case "B0":
		return m.B0
	case "CS":
		return m.CS
	}
	return math.NaN()
}

// Series converts the artifact into a series carrying station, distance and
// provenance attributes.
func (a *Artifact) Series() *series.Series {
	s := &series.Series{
		Times:  append([]time.Time(nil), a.Times...),
		Fields: make([]series.Field, len(a.Meta.Columns)),
		Attrs: map[string]string{
			"station":         a.Meta.Station,
			"dmuf":            fmt.Sprint(a.Meta.DMUF),
			"acknowledgement": a.Meta.Source.Acknowledgement,
		},
	}
	if a.Meta.Source.Location != "" {
		s.Attrs["location"] = a.Meta.Source.Location
	}
	if a.Meta.Source.Instrument != "" {
		s.Attrs["instrument"] = a.Meta.Source.Instrument
	}
	for c, col := range a.Meta.Columns {
		s.Fields[c] = series.Field{
			Name:        col.Name,
			Units:       col.Units,
			Description: col.Description,
			Values:      append([]float64(nil), a.Values[c]...),
		}
	}
	return s
}

// Encode writes a in the binary artifact format.
func Encode(w io.Writer, a *Artifact) error {
	if len(a.Values) != len(a.Meta.Columns) {
		return fmt.Errorf("artifact has %d value columns for %d declared columns", len(a.Values), len(a.Meta.Columns))
	}
	for c, vals := range a.Values {
		if len(vals) != len(a.Times) {
			return fmt.Errorf("column %s has %d values for %d times", a.Meta.Columns[c].Name, len(vals), len(a.Times))
		}
	}

	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	var hdr bytes.Buffer
	hdr.Write(magic[:])
	_ = binary.Write(&hdr, binary.LittleEndian, FormatVersion)
	_ = binary.Write(&hdr, binary.LittleEndian, uint32(len(meta)))
	hdr.Write(meta)
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	rows := len(a.Times)
	raw := make([]byte, 4+rows*int64ByteSize+len(a.Values)*rows*float64ByteSize)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(rows))
	off := 4
	for _, t := range a.Times {
		binary.LittleEndian.PutUint64(raw[off:off+int64ByteSize], uint64(t.UnixNano()))
		off += int64ByteSize
	}
	for _, vals := range a.Values {
		for _, v := range vals {
			binary.LittleEndian.PutUint64(raw[off:off+float64ByteSize], math.Float64bits(v))
			off += float64ByteSize
		}
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return fmt.Errorf("writing body: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing body: %w", err)
	}
	return nil
}

// ErrBadMagic is returned when a file is not a binary artifact.
var ErrBadMagic = errors.New("artifact: bad magic")

// Decode reads an artifact written by Encode.
func Decode(r io.Reader) (*Artifact, error) {
	var head [10]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(head[0:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(head[4:6]); v != FormatVersion {
		return nil, fmt.Errorf("artifact: unsupported format version %d", v)
	}
	metaLen := binary.LittleEndian.Uint32(head[6:10])
	if metaLen > maxMetaLen {
		return nil, fmt.Errorf("artifact: metadata length %d exceeds limit", metaLen)
	}

	metaBytes := make([]byte, metaLen)
	if _, err := io.ReadFull(r, metaBytes); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	if len(raw) < 4 {
		return nil, fmt.Errorf("artifact body too short: %d bytes", len(raw))
	}
	rows := int(binary.LittleEndian.Uint32(raw[0:4]))
	cols := len(meta.Columns)
	want := 4 + rows*int64ByteSize + cols*rows*float64ByteSize
	if len(raw) != want {
		return nil, fmt.Errorf("artifact body is %d bytes, want %d for %d rows x %d columns", len(raw), want, rows, cols)
	}
	if rows != meta.Rows {
		return nil, fmt.Errorf("artifact body has %d rows, metadata declares %d", rows, meta.Rows)
	}

	a := &Artifact{
		Meta:   meta,
		Times:  make([]time.Time, rows),
		Values: make([][]float64, cols),
	}
	off := 4
	for i := range a.Times {
		a.Times[i] = time.Unix(0, int64(binary.LittleEndian.Uint64(raw[off:off+int64ByteSize]))).UTC()
		off += int64ByteSize
	}
	for c := range a.Values {
		vals := make([]float64, rows)
		for i := range vals {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off : off+float64ByteSize]))
			off += float64ByteSize
		}
		a.Values[c] = vals
	}
	return a, nil
}
