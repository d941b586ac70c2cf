package persistence

import (
	"fmt"
	"sort"

	"github.com/inkwell-db/inkwell/internal/collection"
)

// ValidateMigrations implements spec.md §4.4's pure validate(collection,
// version, migrations): the registry must form a contiguous chain starting
// at 0 and ending at version. A nil/empty registry is only an error when
// version > 0 ("empty-registry").
func ValidateMigrations(collName string, version int, migrations []collection.Migration) error {
	if version == 0 {
		return nil
	}
	if len(migrations) == 0 {
		return &MigrationError{Collection: collName, Reason: ReasonEmptyRegistry, Step: -1}
	}

	sorted := make([]collection.Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	seenFrom := make(map[int]bool, len(sorted))
	for i, m := range sorted {
		if seenFrom[m.From] {
			return &MigrationError{Collection: collName, Reason: ReasonDuplicateFrom, Step: i}
		}
		seenFrom[m.From] = true
		if m.To != m.From+1 {
			return &MigrationError{Collection: collName, Reason: ReasonInvalidIncrement, Step: i}
		}
	}

	if sorted[0].From != 0 {
		return &MigrationError{Collection: collName, Reason: ReasonMissingStart, Step: 0}
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].From != sorted[i-1].To {
			return &MigrationError{Collection: collName, Reason: ReasonGapInChain, Step: i}
		}
	}

	last := sorted[len(sorted)-1]
	if last.To != version {
		return &MigrationError{Collection: collName, Reason: ReasonVersionMismatch, Step: len(sorted) - 1}
	}
	return nil
}

// sortedChain returns migrations ordered by From, assuming the chain has
// already passed ValidateMigrations.
func sortedChain(migrations []collection.Migration) []collection.Migration {
	sorted := make([]collection.Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	return sorted
}

// applyMigrations implements spec.md §4.4's upgrade order: apply migrations
// in ascending order from fromVersion to toVersion-1. On a transform error,
// it fails with MigrationError(transform-failed, step=index) and the caller
// must leave the on-disk file untouched (the engine never calls this with
// anything but an in-memory copy of the decoded entities).
func applyMigrations(collName string, fromVersion, toVersion int, migrations []collection.Migration, entities map[string]map[string]any) (map[string]map[string]any, error) {
	sorted := sortedChain(migrations)
	current := entities
	for i, m := range sorted {
		if m.From < fromVersion || m.From >= toVersion {
			continue
		}
		next, err := m.Transform(current)
		if err != nil {
			return nil, &MigrationError{Collection: collName, Reason: ReasonTransformFailed, Step: i, Err: err}
		}
		current = next
	}
	return current, nil
}

// validateEntities runs the collection's current schema against every
// migrated entity (spec.md §4.4: "after the last migration, every resulting
// entity is validated against the current schema").
func validateEntities(collName string, c *collection.Collection, entities map[string]map[string]any) error {
	if c.Config.Schema == nil {
		return nil
	}
	for id, e := range entities {
		if errs := c.Config.Schema.Validate(e); len(errs) > 0 {
			return &MigrationError{
				Collection: collName,
				Reason:     ReasonPostMigrationValidationFailed,
				Step:       -1,
				Err:        fmt.Errorf("entity %s: %w", id, errs[0]),
			}
		}
	}
	return nil
}
