package heap

import "unsafe"

// ptrAt converts a raw cell address into an unsafe.Pointer for the free-list
// link read/write. Confined to this one file so the rest of the package
// never touches unsafe directly.
func ptrAt(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet // intentional raw-address cast
}
