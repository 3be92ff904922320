package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileFuncs(t *testing.T, src string) map[string]*ScriptFunction {
	t.Helper()
	p := NewParser(src)
	mod, ok := p.Parse("test")
	require.True(t, ok, "parse errors: %v", p.Errors())
	out := make(map[string]*ScriptFunction, len(mod.Funcs))
	for _, f := range mod.Funcs {
		fn, err := CompileFunction(f.Name, f.Params, f.Body)
		require.NoError(t, err)
		out[f.Name] = fn
	}
	return out
}

func opsOf(fn *ScriptFunction) []Opcode {
	var out []Opcode
	for _, ins := range fn.Chunk.Disassemble() {
		out = append(out, ins.Op)
	}
	return out
}

func TestCompileParamsAndArith(t *testing.T) {
	fn := compileFuncs(t, `func add(a, b) { return a + b }`)["add"]
	assert.Equal(t, []Opcode{
		OpLoadLocal, OpLoadLocal, OpAdd, OpReturn,
		OpNil, OpReturn,
	}, opsOf(fn))
}

func TestCompileDeterministic(t *testing.T) {
	src := `
func greet(who) {
	if who.level > 3 {
		return "Well met, {who:D}."
	}
	return "Hello."
}
`
	a := compileFuncs(t, src)["greet"]
	b := compileFuncs(t, src)["greet"]
	assert.Equal(t, a.Chunk.Code, b.Chunk.Code)
	assert.Equal(t, a.Chunk.DisassembleString(), b.Chunk.DisassembleString())
}

func TestCompileConstantPooling(t *testing.T) {
	fn := compileFuncs(t, `func f() { return "spark" + "spark" + "spark" }`)["f"]
	count := 0
	for _, c := range fn.Chunk.Constants {
		if s, ok := c.(String); ok && s == "spark" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCompileSmallIntImmediate(t *testing.T) {
	fn := compileFuncs(t, `func f() { return 100 + 1000 }`)["f"]
	ops := opsOf(fn)
	assert.Contains(t, ops, OpSmallInt)
	assert.Contains(t, ops, OpConstant)
}

func TestCompileCloneIntrinsic(t *testing.T) {
	fn := compileFuncs(t, `func f(x) { return clone(x) }`)["f"]
	assert.Contains(t, opsOf(fn), OpClone)
	assert.NotContains(t, opsOf(fn), OpCall)
}

func TestCompileUnboundAssignFails(t *testing.T) {
	p := NewParser(`func f() { nowhere = 1 }`)
	mod, ok := p.Parse("test")
	require.True(t, ok)
	_, err := CompileFunction("f", nil, mod.Funcs[0].Body)
	assert.Error(t, err)
}

func TestCompileInitializerStoresMembers(t *testing.T) {
	p := NewParser(`def lantern : builtins.item {
	name = "lantern"
	lit = false
}`)
	mod, ok := p.Parse("test")
	require.True(t, ok)
	fn, err := CompileInitializer("lantern", mod.Entities[0].Members)
	require.NoError(t, err)
	assert.Equal(t, "lantern.init", fn.Name)
	stores := 0
	for _, ins := range fn.Chunk.Disassemble() {
		if ins.Op == OpStoreMember {
			stores++
		}
	}
	assert.Equal(t, 2, stores)
}
