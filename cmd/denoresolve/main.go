// Command denoresolve inspects and resolves specifiers in a Deno workspace
// the way the esbuild loader does.
package main

func main() {
	Execute()
}
