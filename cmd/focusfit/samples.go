package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"autofocus/pkg/curvefit"
)

// readSamples parses rows of position,value[,weight[,outlier]]. Lines
// starting with # are comments and a non-numeric first row is taken as a
// header.
func readSamples(r io.Reader) (curvefit.DataSet1D, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var xs, ys, ws []float64
	var outliers []bool
	haveWeights, haveOutliers := false, false
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
		if len(rec) < 2 || len(rec) > 4 {
			return nil, fmt.Errorf("row %d: want 2 to 4 columns, got %d", row, len(rec))
		}

		x, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			if row == 1 {
				continue
			}
			return nil, fmt.Errorf("row %d: position: %w", row, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: value: %w", row, err)
		}
		w, outlier := 1.0, false
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			if w, err = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64); err != nil {
				return nil, fmt.Errorf("row %d: weight: %w", row, err)
			}
			haveWeights = true
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			if outlier, err = strconv.ParseBool(strings.TrimSpace(rec[3])); err != nil {
				return nil, fmt.Errorf("row %d: outlier flag: %w", row, err)
			}
			haveOutliers = true
		}
		xs, ys = append(xs, x), append(ys, y)
		ws, outliers = append(ws, w), append(outliers, outlier)
	}

	if !haveWeights {
		ws = nil
	}
	if !haveOutliers {
		outliers = nil
	}
	return curvefit.NewDataSet1D(xs, ys, ws, outliers)
}

func readSamplesFile(path string) (curvefit.DataSet1D, error) {
	if path == "-" {
		return readSamples(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening samples: %w", err)
	}
	defer f.Close()
	return readSamples(f)
}
