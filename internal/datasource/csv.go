// Package datasource loads signal streams produced by external strategy
// logic. The engine itself never reads files; it consumes the in-memory
// stream returned here.
package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
)

// CSVSignalSource reads an ordered signal stream from a CSV file with the
// header: timestamp,side,symbol,price,position_size_fraction. Timestamps are
// RFC 3339.
type CSVSignalSource struct {
	FilePath string
}

// ReadAll parses the whole file, validates every record, and enforces
// strictly increasing timestamps so the engine can assume chronological
// order.
func (c *CSVSignalSource) ReadAll() ([]types.Signal, error) {
	file, err := os.Open(c.FilePath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSignalParseFailed, err, "failed to open signal file %s", c.FilePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSignalParseFailed, "failed to read signal header", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var signals []types.Signal

	var lastTimestamp time.Time

	row := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeSignalParseFailed, err, "failed to read signal row %d", row)
		}

		row++

		signal, err := parseSignal(record, columns, row)
		if err != nil {
			return nil, err
		}

		if err := signal.Validate(); err != nil {
			return nil, err
		}

		if !lastTimestamp.IsZero() && !signal.Timestamp.After(lastTimestamp) {
			return nil, errors.Newf(errors.ErrCodeSignalOutOfOrder,
				"signal at row %d is not after the previous signal (%s <= %s)",
				row, signal.Timestamp.Format(time.RFC3339), lastTimestamp.Format(time.RFC3339))
		}

		lastTimestamp = signal.Timestamp
		signals = append(signals, signal)
	}

	return signals, nil
}

type columnIndex struct {
	timestamp int
	side      int
	symbol    int
	price     int
	fraction  int
}

func mapColumns(header []string) (columnIndex, error) {
	index := columnIndex{timestamp: -1, side: -1, symbol: -1, price: -1, fraction: -1}

	for i, name := range header {
		switch name {
		case "timestamp":
			index.timestamp = i
		case "side":
			index.side = i
		case "symbol":
			index.symbol = i
		case "price":
			index.price = i
		case "position_size_fraction":
			index.fraction = i
		}
	}

	if index.timestamp < 0 || index.side < 0 || index.symbol < 0 || index.price < 0 || index.fraction < 0 {
		return columnIndex{}, errors.Newf(errors.ErrCodeSignalParseFailed, "signal header is missing required columns, got %v", header)
	}

	return index, nil
}

func parseSignal(record []string, columns columnIndex, row int) (types.Signal, error) {
	timestamp, err := time.Parse(time.RFC3339, record[columns.timestamp])
	if err != nil {
		return types.Signal{}, errors.Wrapf(errors.ErrCodeSignalParseFailed, err, "invalid timestamp at row %d", row)
	}

	price, err := strconv.ParseFloat(record[columns.price], 64)
	if err != nil {
		return types.Signal{}, errors.Wrapf(errors.ErrCodeSignalParseFailed, err, "invalid price at row %d", row)
	}

	fraction, err := strconv.ParseFloat(record[columns.fraction], 64)
	if err != nil {
		return types.Signal{}, errors.Wrapf(errors.ErrCodeSignalParseFailed, err, "invalid position size fraction at row %d", row)
	}

	return types.Signal{
		Timestamp:            timestamp,
		Side:                 types.SignalSide(record[columns.side]),
		Symbol:               record[columns.symbol],
		Price:                price,
		PositionSizeFraction: fraction,
	}, nil
}
