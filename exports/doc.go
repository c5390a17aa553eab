// Package exports is the call surface a host drives the adapter through.
//
// Every operation takes a JSON argument object and returns a JSON result
// object. Lockfiles, workspaces and resolvers stay on this side of the
// boundary in a resource.Table; the caller only ever holds their handles and
// must release them with "free".
//
//	lockfile.new                {file_path, content}                          -> {handle}
//	lockfile.package_version    {handle, specifier}                           -> {version}
//	workspace.discover          {entrypoints, is_config_file}                 -> {handle}
//	workspace.lock_path         {handle}                                      -> {path}
//	workspace.node_modules_dir  {handle}                                      -> {mode}
//	workspace.resolver          {handle, import_map_url?, import_map_value?}  -> {handle}
//	resolver.resolve            {handle, specifier, referrer}                 -> {resolved}
//	free                        {handle}                                      -> {}
//
// Absent results (no locked version, no lockfile path) are JSON null.
// Failures are plain strings; see adapter.Message.
package exports
