package utils

import "github.com/mitchellh/mapstructure"

// DefaultDecodeHooks lets config files spell durations as "15s" and lists
// as comma separated strings.
func DefaultDecodeHooks() []mapstructure.DecodeHookFunc {
	return []mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	}
}
