package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// readString copies a (ptr, len) string out of guest memory. Out-of-bounds
// access traps the calling guest.
func readString(mod api.Module, ptr, length uint64) string {
	return string(readBytes(mod, uint32(ptr), uint32(length)))
}

func readBytes(mod api.Module, ptr, length uint32) []byte {
	mem := mod.Memory()
	if mem == nil {
		panic("engine: guest has no memory")
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		panic(fmt.Sprintf("engine: read of %d bytes at %#x out of bounds", length, ptr))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

func writeBytes(mod api.Module, ptr uint64, data []byte) {
	mem := mod.Memory()
	if mem == nil {
		panic("engine: guest has no memory")
	}
	if !mem.Write(uint32(ptr), data) {
		panic(fmt.Sprintf("engine: write of %d bytes at %#x out of bounds", len(data), uint32(ptr)))
	}
}
