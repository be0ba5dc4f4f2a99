package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"marketfeed/internal/domain"
)

// WriteCandlesToCSV exports a candle series for offline analysis.
func WriteCandlesToCSV(series domain.CandleSeries, symbol, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"date", "symbol", "open", "high", "low", "close", "volume"})

	for _, c := range series {
		writer.Write([]string{
			c.Date.Format(time.DateOnly),
			symbol,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}
