package inventory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iliyamo/cruise-reservation/internal/model"
)

// LoadCatalog reads the static itinerary catalog from a JSON file. The file
// is read once at startup; afterwards the store in memory is authoritative.
// Entries violating the cabin invariant are rejected so the invariant holds
// from the first applied event onward.
func LoadCatalog(path string) ([]model.Itinerary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var items []model.Itinerary
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[int64]struct{}, len(items))
	for i := range items {
		it := &items[i]
		if it.ID <= 0 {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %d", i, it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.TotalCabins <= 0 {
			return nil, fmt.Errorf("catalog entry %d: total_cabins must be positive", i)
		}
		if it.AvailableCabins < 0 || it.AvailableCabins > it.TotalCabins {
			return nil, fmt.Errorf("catalog entry %d: available_cabins %d outside [0,%d]",
				i, it.AvailableCabins, it.TotalCabins)
		}
	}
	return items, nil
}
