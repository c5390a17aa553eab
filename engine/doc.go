// Package engine runs sandboxed guest modules on wazero and answers their
// filesystem capability calls.
//
// # Architecture
//
// The engine package provides two main types:
//
//	Engine  - Owns a wazero runtime, the WASI preview1 host and the capability host module
//	Guest   - One instantiated guest module bound to one hostfs.Host
//
// # Capability Host Module
//
// Every engine instantiates a host module (default name "deno_fs") exporting:
//
//	stat_sync(path_ptr, path_len i32) -> len i32
//	read_to_string_lossy(path_ptr, path_len i32) -> len i32
//	read_dir(path_ptr, path_len i32) -> len i32
//	take_result(out_ptr i32)
//
// Each capability call encodes its outcome as a JSON envelope,
// {"ok": value} or {"err": {"message", "code"}}, parks it and returns its
// length. The guest allocates that many bytes and calls take_result to copy
// the envelope out. A missing path is reported with code "ENOENT".
//
// # Guest Protocol
//
// A guest exports its linear memory as "memory" and:
//
//	guest_alloc(size i32) -> ptr i32
//	guest_call(req_ptr, req_len i32) -> len i32
//	guest_take(out_ptr i32)
//
// Guest.Call writes a request into guest memory, runs guest_call and copies
// the parked response out with guest_take, mirroring the host side.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Guest serializes its calls.
package engine
