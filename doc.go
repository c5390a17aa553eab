// Package denoloader lets a sandboxed guest drive Deno workspace discovery,
// import resolution and lockfile queries without touching a real filesystem.
//
// The guest never performs I/O itself. Every stat, read and directory listing
// the resolution engine needs is forwarded to host-provided functions through
// a small capability interface, and the engine's rich result types are
// projected back into a narrow protocol the host can consume.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	denoloader/          Root package with the capability FS interface
//	├── errors/          Structured error types (phase + kind)
//	├── hostfs/          Host side: capability functions, OS and io/fs hosts, wire format
//	├── bridge/          Capability filesystem bridge and host error projection
//	├── depreq/          Dependency descriptors and npm:/jsr: package references
//	├── lockfile/        deno.lock documents (v3, v4, v5)
//	├── importmap/       Import map parsing and resolution
//	├── workspace/       Workspace discovery over the capability FS
//	├── resolver/        Specifier resolution producing MappedResolution variants
//	├── adapter/         Lockfile, Workspace and Resolver handles + result projection
//	├── resource/        Handle table for objects owned across the boundary
//	├── exports/         JSON call surface over handles
//	├── engine/          wazero sandbox host exposing the deno_fs host module
//	└── specifier/       esbuild namespace/path split and media types
//
// # Quick Start
//
// Discover a workspace and resolve a specifier:
//
//	host := hostfs.OS{}
//
//	ws, err := adapter.Discover(host, []string{"/proj/src"}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := ws.Resolver(host, "", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resolved, err := res.Resolve("@std/path", "file:///proj/src/main.ts")
//	fmt.Println(resolved) // "jsr:@std/path@^1.0.0"
//
// # Errors
//
// Filesystem failures reported by the host are collapsed to two kinds,
// not found and other. Malformed input, unsupported resolution outcomes and
// engine failures each have their own kind; see package errors.
//
// # Thread Safety
//
// Workspace and Resolver values are immutable once constructed and are safe
// for concurrent read-only use. A host implementation is called from
// whichever goroutine issues the request.
package denoloader
