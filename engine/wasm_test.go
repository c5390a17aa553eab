package engine

// Minimal wasm binary assembly for tests.

const (
	i32 = 0x7f

	allocBase = 16384
	pathAddr  = 4096
	probeOut  = 8192
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint32(len(items))), cat(items...))
}

func bytesVec(b []byte) []byte {
	return cat(uleb(uint32(len(b))), b)
}

func section(id byte, items ...[]byte) []byte {
	body := vec(items...)
	return cat([]byte{id}, uleb(uint32(len(body))), body)
}

func funcType(params, results []byte) []byte {
	return cat([]byte{0x60}, bytesVec(params), bytesVec(results))
}

func i32Const(v int32) []byte {
	return cat([]byte{0x41}, sleb(v))
}

func body(locals []byte, instrs ...[]byte) []byte {
	b := cat(locals, cat(instrs...), []byte{0x0b})
	return bytesVec(b)
}

func export(name string, kind byte, idx uint32) []byte {
	return cat(bytesVec([]byte(name)), []byte{kind}, uleb(idx))
}

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// guestModule assembles a guest implementing the call protocol. With a nil
// response guest_call echoes the request; otherwise it answers response.
// probe_stat, probe_read and probe_dir call the matching capability import
// with (ptr, len), take the result to probeOut and return its length.
func guestModule(response []byte) []byte {
	noLocals := []byte{0x00}
	oneI32 := []byte{0x01, 0x01, i32}

	imp := func(field string, typ uint32) []byte {
		return cat(bytesVec([]byte(DefaultHostModule)), bytesVec([]byte(field)), []byte{0x00}, uleb(typ))
	}
	global := func(v int32) []byte {
		return cat([]byte{i32, 0x01}, i32Const(v), []byte{0x0b})
	}
	probe := func(fn byte) []byte {
		return body(oneI32,
			[]byte{0x20, 0x00, 0x20, 0x01, 0x10, fn, 0x21, 0x02},
			i32Const(probeOut),
			[]byte{0x10, 0x03, 0x20, 0x02},
		)
	}

	call := body(noLocals, []byte{0x20, 0x00, 0x24, 0x01, 0x20, 0x01, 0x24, 0x00, 0x20, 0x01})
	if response != nil {
		n := int32(len(response))
		call = body(noLocals,
			i32Const(0), []byte{0x24, 0x01},
			i32Const(n), []byte{0x24, 0x00},
			i32Const(n),
		)
	}

	mod := cat(header,
		section(1,
			funcType([]byte{i32}, []byte{i32}),
			funcType([]byte{i32, i32}, []byte{i32}),
			funcType([]byte{i32}, nil),
		),
		section(2,
			imp("stat_sync", 1),
			imp("read_to_string_lossy", 1),
			imp("read_dir", 1),
			imp("take_result", 2),
		),
		section(3, uleb(0), uleb(1), uleb(2), uleb(1), uleb(1), uleb(1)),
		section(5, []byte{0x00, 0x01}),
		section(6, global(0), global(0), global(allocBase)),
		section(7,
			export("memory", 0x02, 0),
			export("guest_alloc", 0x00, 4),
			export("guest_call", 0x00, 5),
			export("guest_take", 0x00, 6),
			export("probe_stat", 0x00, 7),
			export("probe_read", 0x00, 8),
			export("probe_dir", 0x00, 9),
		),
		section(10,
			body(noLocals, []byte{0x23, 0x02, 0x23, 0x02, 0x20, 0x00, 0x6a, 0x24, 0x02}),
			call,
			body(noLocals, []byte{0x20, 0x00, 0x23, 0x01, 0x23, 0x00, 0xfc, 0x0a, 0x00, 0x00}),
			probe(0x00),
			probe(0x01),
			probe(0x02),
		),
	)
	if response != nil {
		mod = cat(mod, section(11, cat([]byte{0x00}, i32Const(0), []byte{0x0b}, bytesVec(response))))
	}
	return mod
}

// memoryOnlyModule exports a memory and nothing else.
func memoryOnlyModule() []byte {
	return cat(header,
		section(5, []byte{0x00, 0x01}),
		section(7, export("memory", 0x02, 0)),
	)
}
