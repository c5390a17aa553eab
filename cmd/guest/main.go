//go:build wasip1

// Command guest is the adapter built as a wasip1 reactor. Its filesystem
// capability is imported from the "deno_fs" host module and its call surface
// is exported through guest_alloc, guest_call and guest_take.
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o adapter.wasm ./cmd/guest
package main

import (
	"unsafe"

	"github.com/lucacasonato/esbuild-deno-loader/exports"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

//go:wasmimport deno_fs stat_sync
func statSync(ptr unsafe.Pointer, length uint32) uint32

//go:wasmimport deno_fs read_to_string_lossy
func readToStringLossy(ptr unsafe.Pointer, length uint32) uint32

//go:wasmimport deno_fs read_dir
func readDir(ptr unsafe.Pointer, length uint32) uint32

//go:wasmimport deno_fs take_result
func takeResult(out unsafe.Pointer)

// importedHost answers capability calls through the host module.
type importedHost struct{}

func capability(fn func(unsafe.Pointer, uint32) uint32, path string, out any) error {
	buf := []byte(path)
	var ptr unsafe.Pointer
	if len(buf) > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}
	n := fn(ptr, uint32(len(buf)))
	result := make([]byte, n)
	if n > 0 {
		takeResult(unsafe.Pointer(&result[0]))
	}
	return hostfs.DecodeResult(result, out)
}

func (importedHost) StatSync(path string) (hostfs.Metadata, error) {
	var meta hostfs.Metadata
	err := capability(statSync, path, &meta)
	return meta, err
}

func (importedHost) ReadToStringLossy(path string) (string, error) {
	var text string
	err := capability(readToStringLossy, path, &text)
	return text, err
}

func (importedHost) ReadDir(path string) ([]hostfs.DirEntry, error) {
	var entries []hostfs.DirEntry
	err := capability(readDir, path, &entries)
	return entries, err
}

var (
	surface = exports.New(importedHost{})

	// buffers keeps guest_alloc allocations reachable until they are consumed.
	buffers  = map[uintptr][]byte{}
	response []byte
)

//go:wasmexport guest_alloc
func guestAlloc(size uint32) unsafe.Pointer {
	buf := make([]byte, max(size, 1))
	ptr := unsafe.Pointer(&buf[0])
	buffers[uintptr(ptr)] = buf
	return ptr
}

//go:wasmexport guest_call
func guestCall(ptr unsafe.Pointer, length uint32) uint32 {
	buf := buffers[uintptr(ptr)]
	delete(buffers, uintptr(ptr))
	response = surface.Dispatch(buf[:length])
	return uint32(len(response))
}

//go:wasmexport guest_take
func guestTake(out unsafe.Pointer) {
	buf := buffers[uintptr(out)]
	delete(buffers, uintptr(out))
	copy(buf, response)
	response = nil
}

func main() {}
