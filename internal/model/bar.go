package model

// Bar is one OHLCV candle as loaded from disk, before indicator
// computation. Shared between dataio readers and the series builder;
// json and parquet tags drive both serializations.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix seconds
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    int64   `json:"v" parquet:"v"`
}
