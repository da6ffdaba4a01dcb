package study

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/Blanqui04/capstat/errors"
)

var csvHeader = []string{
	"client", "reference", "lot", "element", "datum", "property", "cavity",
	"n", "n_synthetic", "parse_failures", "conflicts",
	"nominal", "lsl", "usl",
	"mean", "stddev_within", "stddev_overall", "min", "max",
	"cp", "cpk", "pp", "ppk",
	"ppm_within", "ppm_overall",
	"ad_statistic", "p_value", "normal",
	"status", "error",
}

// WriteCSV writes one row per element. Failed elements appear with their
// error kind so an exported study never silently loses elements.
func (s *Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for i := range s.Entries {
		e := &s.Entries[i]
		row := []string{
			e.Key.Client, e.Key.Reference, e.Key.Lot,
			e.Key.Element, e.Key.Datum, e.Key.Property, e.Key.Cavity,
		}
		if e.Result != nil {
			r := e.Result
			row = append(row,
				strconv.Itoa(r.N), strconv.Itoa(r.NSynthetic),
				strconv.Itoa(e.ParseFailures), strconv.Itoa(e.Conflicts),
				csvFloat(e.Tolerance.Nominal), csvFloat(e.Tolerance.LSL()), csvFloat(e.Tolerance.USL()),
				csvFloat(r.Mean), csvFloat(r.StdDevWithin), csvFloat(r.StdDevOverall),
				csvFloat(r.Min), csvFloat(r.Max),
				csvFloat(r.Cp), csvFloat(r.Cpk), csvFloat(r.Pp), csvFloat(r.Ppk),
				csvFloat(r.PPMWithin), csvFloat(r.PPMOverall),
				csvFloat(r.ADStatistic), csvFloat(r.PValue), strconv.FormatBool(r.Normal),
				string(r.Status), e.ErrKind,
			)
		} else {
			for len(row) < len(csvHeader)-1 {
				row = append(row, "")
			}
			row = append(row, e.ErrKind)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// csvFloat leaves non-finite statistics blank rather than exporting
// tokens spreadsheets choke on.
func csvFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
