package dataio

import (
	"fmt"
	"os"

	"gridbt/internal/strategy"
)

// LoadParams reads a single-configuration YAML document for the named
// strategy.
func LoadParams(path, strategyName string) (strategy.ParamSet, error) {
	def, err := strategy.Lookup(strategyName)
	if err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params %s: %w", path, err)
	}
	return def.ParseParams(doc)
}

// LoadGrid reads a grid YAML document (candidate values per parameter)
// for the named strategy.
func LoadGrid(path, strategyName string) (strategy.Grid, error) {
	def, err := strategy.Lookup(strategyName)
	if err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid %s: %w", path, err)
	}
	return def.ParseGrid(doc)
}
