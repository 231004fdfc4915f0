package flightdata

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// LoadFlightPlans reads the flight plan collection from a JSON file
func LoadFlightPlans(path string) ([]types.FlightPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flight plans: %w", err)
	}

	var plans []types.FlightPlan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("failed to parse flight plans %s: %w", path, err)
	}
	return plans, nil
}

// LoadTypeTable reads the aircraft type table from a JSON file
func LoadTypeTable(path string) (types.TypeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aircraft types: %w", err)
	}

	var table types.TypeTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse aircraft types %s: %w", path, err)
	}
	if table == nil {
		table = types.TypeTable{}
	}
	return table, nil
}
