// Package bridge implements the capability filesystem on top of a host.
//
// Every call is forwarded to the host exactly once, with no retries and no
// local state. Host failures are projected into two kinds:
//
//	code == "ENOENT"   -> errors.KindNotFound
//	any other / none   -> errors.KindOther
//
// Directory entry names are joined onto the listed path so the resolution
// engine never sees bare names:
//
//	fs := bridge.New(hostfs.OS{})
//	entries, err := fs.ListDir("/proj")
//	// entries[i].Path == "/proj/" + entries[i].Name
package bridge
