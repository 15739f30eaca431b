package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
)

// MigratePositionKeys assigns a position_key ("pos1", "pos2", ...) to every
// position stored without one, so formulas can reference it. Keys already
// in use inside the project are skipped. Safe to call on every startup --
// returns early if nothing to migrate.
func MigratePositionKeys(app *pocketbase.PocketBase) error {
	positionsCol, err := app.FindCollectionByNameOrId("positions")
	if err != nil {
		return fmt.Errorf("migrate: could not find positions collection: %w", err)
	}

	missing, err := app.FindRecordsByFilter(positionsCol, "position_key = ''", "sort_order", 0, 0, nil)
	if err != nil {
		return fmt.Errorf("migrate: could not query positions without key: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	log.Printf("migrate: found %d position(s) without a key -- assigning keys...\n", len(missing))

	used := make(map[string]map[string]bool) // project id -> keys
	for _, pos := range missing {
		projectID := pos.GetString("project")
		if used[projectID] == nil {
			siblings, err := app.FindRecordsByFilter(positionsCol, "project = {:projectId}", "", 0, 0,
				map[string]any{"projectId": projectID})
			if err != nil {
				log.Printf("migrate: could not load positions of project %s: %v\n", projectID, err)
				continue
			}
			used[projectID] = make(map[string]bool, len(siblings))
			for _, s := range siblings {
				if k := s.GetString("position_key"); k != "" {
					used[projectID][k] = true
				}
			}
		}

		key := nextKey("pos", used[projectID])
		pos.Set("position_key", key)
		if err := app.Save(pos); err != nil {
			log.Printf("migrate: failed to set key of position %s: %v\n", pos.Id, err)
			continue
		}
		used[projectID][key] = true
	}

	log.Println("migrate: position key migration complete.")
	return nil
}

// nextKey returns the first prefix+n (n >= 1) not present in used.
func nextKey(prefix string, used map[string]bool) string {
	for n := 1; ; n++ {
		key := fmt.Sprintf("%s%d", prefix, n)
		if !used[key] {
			return key
		}
	}
}
