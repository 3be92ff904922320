// Command wsc parses wyrdscript source files and reports authoring errors
// without starting a server. With -S it also prints the compiled bytecode
// of every function, handler, and method.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emberwake/server/internal/script"
)

var disasm = flag.Bool("S", false, "print compiled bytecode")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: wsc [-S] file.ws|dir ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	for _, arg := range flag.Args() {
		for _, path := range collect(arg) {
			if !checkFile(path) {
				failed++
			}
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d file(s) with errors\n", failed)
		os.Exit(1)
	}
}

// collect expands a directory argument into its .ws files.
func collect(arg string) []string {
	info, err := os.Stat(arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsc: %v\n", err)
		os.Exit(2)
	}
	if !info.IsDir() {
		return []string{arg}
	}
	var out []string
	filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(path, ".ws") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func checkFile(path string) bool {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsc: %v\n", err)
		return false
	}
	name := strings.TrimSuffix(filepath.Base(path), ".ws")
	parser := script.NewParser(string(src))
	ast, ok := parser.Parse(name)
	if !ok {
		for _, pe := range parser.Errors() {
			fmt.Fprintf(os.Stderr, "%s:%s\n", path, pe.Error())
		}
		return false
	}
	return compileModule(path, ast)
}

func compileModule(path string, ast *script.ModuleAST) bool {
	ok := true
	emit := func(label string, line int, fn *script.ScriptFunction, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s:%d: %s: %v\n", path, line, label, err)
			ok = false
			return
		}
		if *disasm {
			fmt.Printf("== %s %s ==\n%s\n", path, label, fn.Chunk.DisassembleString())
		}
	}

	for _, f := range ast.Funcs {
		fn, err := script.CompileFunction(f.Name, f.Params, f.Body)
		emit("func "+f.Name, f.Line, fn, err)
	}
	for _, e := range ast.Entities {
		for _, h := range e.Handlers {
			fn, err := script.CompileFunction(h.Event, h.Params, h.Body)
			emit(e.Name+"/"+h.Event, h.Line, fn, err)
		}
		for _, m := range e.Methods {
			fn, err := script.CompileFunction(m.Name, m.Params, m.Body)
			emit(e.Name+"."+m.Name, m.Line, fn, err)
		}
		fn, err := script.CompileInitializer(e.Name, e.Members)
		emit(e.Name+" init", e.Line, fn, err)
	}
	for _, x := range ast.Extends {
		for _, h := range x.Handlers {
			fn, err := script.CompileFunction(h.Event, h.Params, h.Body)
			emit(x.Target.String()+"/"+h.Event, h.Line, fn, err)
		}
	}
	for _, q := range ast.Quests {
		fn, err := script.CompileInitializer(q.Name, q.Members)
		emit("quest "+q.Name, q.Line, fn, err)
	}
	return ok
}
