package persistence

import "time"

// loadLocationOrUTC resolves a stored timezone name, falling back to UTC for
// an empty or unrecognised value rather than failing the whole load — a
// resource's wall-clock rendering degrading to UTC is recoverable; refusing
// to rehydrate the project at all is not.
func loadLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
