package storage

import "reflect"

// deepEqual is the default value comparator used by ModeUpgrade/ModeTest
// when no per-name Comparator is registered.
func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
