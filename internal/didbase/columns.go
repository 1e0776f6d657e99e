// Package didbase parses the whitespace-delimited text served by the DIDBase
// DIDBGetValues endpoint into typed measurements.
//
// A data line has twelve fields: the timestamp, the autoscale confidence
// score, and five characteristics each followed by a qualifier column:
//
//	#Time                     CS   foF2 QD  MUFD QD  hmF2 QD   TEC QD    B0 QD
//	2012-01-15T00:00:00.000Z  90  6.125 //  17.43 // 281.6 //  12.4 //  98.0 //
package didbase

// Characteristics are the DIDBase characteristic names requested from the
// remote service, in the column order of the response.
var Characteristics = []string{"foF2", "MUFD", "hmF2", "TEC", "B0"}

// TECScale converts total electron content from TEC units to m^-2.
const TECScale = 1e16

// Column describes one measurement field of the parsed output.
type Column struct {
	Name        string `json:"name"`
	Units       string `json:"units"`
	Description string `json:"description"`
}

// Columns is the fixed column table attached to every artifact and result,
// in storage order.
var Columns = []Column{
	{Name: "hmF2", Units: "km", Description: "Peak height of the F2 layer"},
	{Name: "foF2", Units: "MHz", Description: "F2 layer critical frequency"},
	{Name: "TEC", Units: "m^-2", Description: "Total electron content"},
	{Name: "MUFD", Units: "MHz", Description: "Maximum usable frequency for the configured ground distance"},
	{Name: "B0", Units: "km", Description: "IRI bottomside thickness parameter"},
	{Name: "CS", Units: "%", Description: "Autoscaling confidence score (999 indicates manual scaling)"},
}

// Field positions within a whitespace-split data line.
const (
	fieldCount = 12

	idxTime = 0
	idxCS   = 1
	idxFoF2 = 2
	idxMUFD = 4
	idxHmF2 = 6
	idxTEC  = 8
	idxB0   = 10
)

// stationMarker precedes the station code in the response header.
const stationMarker = "URSI-Code"

// maxHeaderLines bounds how many leading comment lines are kept as provenance.
const maxHeaderLines = 16
