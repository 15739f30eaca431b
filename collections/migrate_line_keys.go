package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
)

// syntheticKeys are reserved for the project-management and agency
// commission lines of a position.
var syntheticKeys = map[string]string{
	"is_project_management": "PM",
	"is_commission_agence":  "CA",
}

// MigrateLineKeys assigns a line_key to every quote line stored without
// one: "PM"/"CA" for synthetic lines, "L1", "L2", ... for regular lines,
// unique within the position. Safe to call on every startup.
func MigrateLineKeys(app *pocketbase.PocketBase) error {
	linesCol, err := app.FindCollectionByNameOrId("quote_lines")
	if err != nil {
		return fmt.Errorf("migrate_keys: could not find quote_lines collection: %w", err)
	}

	missing, err := app.FindRecordsByFilter(linesCol, "line_key = ''", "sort_order", 0, 0, nil)
	if err != nil {
		return fmt.Errorf("migrate_keys: could not query lines without key: %w", err)
	}

	used := make(map[string]map[string]bool) // position id -> keys
	for _, line := range missing {
		positionID := line.GetString("position")
		if used[positionID] == nil {
			siblings, err := app.FindRecordsByFilter(linesCol, "position = {:positionId}", "", 0, 0,
				map[string]any{"positionId": positionID})
			if err != nil {
				log.Printf("migrate_keys: could not load lines of position %s: %v\n", positionID, err)
				continue
			}
			used[positionID] = map[string]bool{"PM": true, "CA": true}
			for _, s := range siblings {
				if k := s.GetString("line_key"); k != "" {
					used[positionID][k] = true
				}
			}
		}

		key := ""
		for flag, reserved := range syntheticKeys {
			if line.GetBool(flag) {
				key = reserved
			}
		}
		if key == "" {
			key = nextKey("L", used[positionID])
			used[positionID][key] = true
		}

		line.Set("line_key", key)
		if err := app.Save(line); err != nil {
			log.Printf("migrate_keys: failed to set key of line %s: %v\n", line.Id, err)
		}
	}

	return nil
}
