package script

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// Host supplies the world-side operations the VM cannot perform itself:
// reference resolution against the module table and the entity-graph
// operations behind the makePortal/clone/setCount opcodes.
type Host interface {
	ResolveRef(ref Ref) (Value, error)
	MakePortal(proto Value, direction Symbol, dest Ref, oneway bool) (Value, error)
	CloneValue(v Value) (Value, error)
	SetCount(item Value, count int) (Value, error)
}

type ResultKind int

const (
	// ResultValue carries a normal return value.
	ResultValue ResultKind = iota
	// ResultAwait means the call suspended; it resumes independently on the
	// tick loop when its future fires.
	ResultAwait
	// ResultFallthrough asks the event dispatcher to try the next handler.
	ResultFallthrough
)

type Result struct {
	Kind  ResultKind
	Value Value
}

func ValueResult(v Value) Result { return Result{Kind: ResultValue, Value: v} }

// VM executes compiled chunks on a per-call value stack. It is single
// threaded: all execution happens on the tick loop, and only the await
// opcode yields control.
type VM struct {
	host Host
	log  *zap.Logger
}

func NewVM(host Host, log *zap.Logger) *VM {
	return &VM{host: host, log: log}
}

// frame is the execution state of one call. It survives suspension: the
// continuation captured by await re-enters run with the same frame.
type frame struct {
	fn        *ScriptFunction
	ip        int
	stack     []Value
	locals    []Value
	listMarks []int
	iter      *iterator
	done      func(Result)
}

type iterator struct {
	elems []Value
	idx   int
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

// Call invokes a callable value with the given arguments. If the call
// suspends, done (when non-nil) receives the eventual result after the
// future resumes it; the immediate Result reports the suspension.
func (vm *VM) Call(callee Value, args []Value, done func(Result)) (Result, error) {
	for {
		bm, ok := callee.(*BoundMethod)
		if !ok {
			break
		}
		args = append([]Value{bm.Receiver}, args...)
		callee = bm.Method
	}

	switch fn := callee.(type) {
	case *NativeFunction:
		v, err := fn.Fn(args)
		if err != nil {
			return Result{}, err
		}
		if v == nil {
			v = Nil{}
		}
		return ValueResult(v), nil
	case *ScriptFunction:
		f := &frame{fn: fn, done: done}
		f.locals = make([]Value, len(fn.Params))
		for i := range f.locals {
			if i < len(args) {
				f.locals[i] = args[i]
			} else {
				f.locals[i] = Nil{}
			}
		}
		return vm.run(f)
	default:
		return Result{}, vm.fault(nil, ErrExpectedCallable, "cannot call %s", kindOf(callee))
	}
}

func kindOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

// fault wraps a VM error with source position context.
func (vm *VM) fault(f *frame, base error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if f != nil {
		return fmt.Errorf("%s:%d: %w: %s", f.fn.Chunk.Name, f.fn.Chunk.LineAt(f.ip), base, msg)
	}
	return fmt.Errorf("%w: %s", base, msg)
}

func (vm *VM) run(f *frame) (Result, error) {
	chunk := f.fn.Chunk
	code := chunk.Code
	for f.ip < len(code) {
		op := Opcode(code[f.ip])
		f.ip++
		switch op {
		case OpNil:
			f.push(Nil{})
		case OpTrue:
			f.push(Bool(true))
		case OpFalse:
			f.push(Bool(false))
		case OpSmallInt:
			f.push(Number(int8(code[f.ip])))
			f.ip++
		case OpConstant:
			f.push(chunk.Constants[readU16(code, f.ip)])
			f.ip += 2
		case OpPop:
			f.pop()

		case OpCreateLocal:
			f.locals = append(f.locals, f.pop())
		case OpRemoveLocals:
			n := int(code[f.ip])
			f.ip++
			f.locals = f.locals[:len(f.locals)-n]
		case OpLoadLocal:
			f.push(f.locals[code[f.ip]])
			f.ip++
		case OpStoreLocal:
			f.locals[code[f.ip]] = f.pop()
			f.ip++

		case OpNot:
			f.push(Bool(!Truthy(f.pop())))
		case OpNegate:
			n, ok := f.pop().(Number)
			if !ok {
				return Result{}, vm.fault(f, ErrTypeMismatch, "cannot negate non-number")
			}
			f.push(-n)
		case OpDeref:
			v := f.pop()
			rv, ok := v.(RefValue)
			if !ok {
				return Result{}, vm.fault(f, ErrReferenceRequired, "cannot dereference %s", kindOf(v))
			}
			resolved, err := vm.host.ResolveRef(rv.Ref)
			if err != nil {
				return Result{}, vm.fault(f, ErrUndefinedReference, "%s", rv.Ref)
			}
			f.push(resolved)

		case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulus:
			if err := vm.arith(f, op); err != nil {
				return Result{}, err
			}
		case OpEqual:
			b := f.pop()
			a := f.pop()
			f.push(Bool(Equal(a, b)))
		case OpNotEqual:
			b := f.pop()
			a := f.pop()
			f.push(Bool(!Equal(a, b)))
		case OpLess, OpLessEq, OpGreater, OpGreaterEq:
			if err := vm.compare(f, op); err != nil {
				return Result{}, err
			}

		case OpJump:
			f.ip += 2 + readS16(code, f.ip)
		case OpJumpIf:
			off := readS16(code, f.ip)
			f.ip += 2
			if Truthy(f.pop()) {
				f.ip += off
			}
		case OpJumpIfNot:
			off := readS16(code, f.ip)
			f.ip += 2
			if !Truthy(f.pop()) {
				f.ip += off
			}

		case OpLoadSymbol:
			f.push(chunk.Constants[readU16(code, f.ip)])
			f.ip += 2
		case OpLoadMember:
			name := string(chunk.Constants[readU16(code, f.ip)].(Symbol))
			f.ip += 2
			obj, ok := f.pop().(Object)
			if !ok {
				return Result{}, vm.fault(f, ErrTypeMismatch, "member %q on non-object", name)
			}
			v, found := obj.GetMember(name)
			if !found {
				return Result{}, vm.fault(f, ErrUndefinedSymbol, "%s", name)
			}
			if fn, isFn := v.(Function); isFn {
				v = &BoundMethod{Receiver: obj, Method: fn}
			}
			f.push(v)
		case OpStoreMember:
			name := string(chunk.Constants[readU16(code, f.ip)].(Symbol))
			f.ip += 2
			v := f.pop()
			obj, ok := f.pop().(Object)
			if !ok {
				return Result{}, vm.fault(f, ErrTypeMismatch, "member %q on non-object", name)
			}
			if err := obj.SetMember(name, v); err != nil {
				return Result{}, vm.fault(f, err, "store %s", name)
			}
			f.push(v)
		case OpLoadSubscript:
			idxV := f.pop()
			obj := f.pop()
			v, err := vm.subscript(f, obj, idxV)
			if err != nil {
				return Result{}, err
			}
			f.push(v)
		case OpStoreSubscript:
			v := f.pop()
			idxV := f.pop()
			obj := f.pop()
			list, ok := obj.(*List)
			if !ok {
				return Result{}, vm.fault(f, ErrTypeMismatch, "subscript store on %s", kindOf(obj))
			}
			idx, err := AsInt(idxV)
			if err != nil {
				return Result{}, vm.fault(f, ErrTypeMismatch, "subscript index must be a number")
			}
			if idx < 0 || idx >= len(list.Elems) {
				return Result{}, vm.fault(f, ErrIndexOutOfBounds, "index %d of %d", idx, len(list.Elems))
			}
			list.Elems[idx] = v
			f.push(v)

		case OpBeginList:
			f.listMarks = append(f.listMarks, len(f.stack))
		case OpEndList:
			mark := f.listMarks[len(f.listMarks)-1]
			f.listMarks = f.listMarks[:len(f.listMarks)-1]
			elems := make([]Value, len(f.stack)-mark)
			copy(elems, f.stack[mark:])
			f.stack = f.stack[:mark]
			f.push(&List{Elems: elems})

		case OpIterate:
			if f.iter != nil {
				return Result{}, vm.fault(f, ErrNestedIteration, "iterator already active")
			}
			seq := f.pop()
			switch s := seq.(type) {
			case *List:
				f.iter = &iterator{elems: s.Elems}
			case Range:
				elems := make([]Value, 0, s.Hi-s.Lo+1)
				for i := s.Lo; i <= s.Hi; i++ {
					elems = append(elems, Number(i))
				}
				f.iter = &iterator{elems: elems}
			default:
				return Result{}, vm.fault(f, ErrTypeMismatch, "cannot iterate %s", kindOf(seq))
			}
		case OpAdvanceOrJump:
			off := readS16(code, f.ip)
			f.ip += 2
			if f.iter == nil || f.iter.idx >= len(f.iter.elems) {
				f.iter = nil
				f.ip += off
				break
			}
			f.push(f.iter.elems[f.iter.idx])
			f.iter.idx++

		case OpMakePortal:
			oneway := code[f.ip] != 0
			f.ip++
			destV := f.pop()
			dirV := f.pop()
			proto := f.pop()
			dest, ok := destV.(RefValue)
			if !ok {
				return Result{}, vm.fault(f, ErrReferenceRequired, "portal destination")
			}
			dir, ok := dirV.(Symbol)
			if !ok {
				return Result{}, vm.fault(f, ErrTypeMismatch, "portal direction must be a symbol")
			}
			portal, err := vm.host.MakePortal(proto, dir, dest.Ref, oneway)
			if err != nil {
				return Result{}, vm.fault(f, err, "makePortal")
			}
			f.push(portal)
		case OpClone:
			cloned, err := vm.host.CloneValue(f.pop())
			if err != nil {
				return Result{}, vm.fault(f, err, "clone")
			}
			f.push(cloned)
		case OpSetCount:
			countV := f.pop()
			item := f.pop()
			count, err := AsInt(countV)
			if err != nil {
				return Result{}, vm.fault(f, ErrTypeMismatch, "stack count must be a number")
			}
			stacked, err := vm.host.SetCount(item, count)
			if err != nil {
				return Result{}, vm.fault(f, err, "stack")
			}
			f.push(stacked)

		case OpCall:
			argc := int(code[f.ip])
			f.ip++
			args := make([]Value, argc)
			copy(args, f.stack[len(f.stack)-argc:])
			f.stack = f.stack[:len(f.stack)-argc]
			callee := f.pop()
			res, err := vm.Call(callee, args, nil)
			if err != nil {
				return Result{}, err
			}
			switch res.Kind {
			case ResultValue:
				f.push(res.Value)
			case ResultAwait:
				// The callee suspended and will finish independently; the
				// call expression observes nil.
				f.push(Nil{})
			case ResultFallthrough:
				return Result{}, vm.fault(f, ErrInvalidResult, "fallthrough from plain call")
			}

		case OpStringify:
			format := code[f.ip]
			f.ip++
			f.push(String(ToString(f.pop(), format)))
		case OpJoinStrings:
			n := int(code[f.ip])
			f.ip++
			var b strings.Builder
			for _, v := range f.stack[len(f.stack)-n:] {
				s, _ := v.(String)
				b.WriteString(string(s))
			}
			f.stack = f.stack[:len(f.stack)-n]
			f.push(String(b.String()))

		case OpAwait:
			v := f.pop()
			fut, ok := v.(*Future)
			if !ok {
				return Result{}, vm.fault(f, ErrExpectedFuture, "await on %s", kindOf(v))
			}
			vm.suspend(f, fut)
			return Result{Kind: ResultAwait}, nil

		case OpReturn:
			return ValueResult(f.pop()), nil
		case OpFallthrough:
			return Result{Kind: ResultFallthrough}, nil

		default:
			return Result{}, vm.fault(f, ErrInvalidResult, "bad opcode %d", op)
		}
	}
	return ValueResult(Nil{}), nil
}

// suspend hands the frame's continuation to the future. The resumed run
// continues from the instruction after await with nil as the await result;
// if the frame completes, the original caller's done callback fires.
func (vm *VM) suspend(f *frame, fut *Future) {
	resume := func() {
		f.push(Nil{})
		res, err := vm.run(f)
		if err != nil {
			if vm.log != nil {
				vm.log.Warn("script error after resume",
					zap.String("function", f.fn.Name),
					zap.Error(err),
				)
			}
			if f.done != nil {
				f.done(ValueResult(Nil{}))
			}
			return
		}
		if res.Kind == ResultAwait {
			return // suspended again; a later resume finishes the frame
		}
		if f.done != nil {
			f.done(res)
		}
	}
	fut.Run(resume)
}

func (vm *VM) arith(f *frame, op Opcode) error {
	b := f.pop()
	a := f.pop()
	if op == OpAdd {
		if as, ok := a.(String); ok {
			if bs, ok := b.(String); ok {
				f.push(as + bs)
				return nil
			}
		}
		if al, ok := a.(*List); ok {
			if bl, ok := b.(*List); ok {
				elems := make([]Value, 0, len(al.Elems)+len(bl.Elems))
				elems = append(elems, al.Elems...)
				elems = append(elems, bl.Elems...)
				f.push(&List{Elems: elems})
				return nil
			}
		}
	}
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return vm.fault(f, ErrTypeMismatch, "%s on %s and %s", op, kindOf(a), kindOf(b))
	}
	switch op {
	case OpAdd:
		f.push(an + bn)
	case OpSubtract:
		f.push(an - bn)
	case OpMultiply:
		f.push(an * bn)
	case OpDivide:
		f.push(an / bn)
	case OpModulus:
		f.push(Number(math.Mod(float64(an), float64(bn))))
	}
	return nil
}

func (vm *VM) compare(f *frame, op Opcode) error {
	b := f.pop()
	a := f.pop()
	var cmp int
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return vm.fault(f, ErrTypeMismatch, "compare %s with %s", kindOf(a), kindOf(b))
		}
		switch {
		case av < bv:
			cmp = -1
		case av > bv:
			cmp = 1
		}
	case String:
		bv, ok := b.(String)
		if !ok {
			return vm.fault(f, ErrTypeMismatch, "compare %s with %s", kindOf(a), kindOf(b))
		}
		cmp = strings.Compare(string(av), string(bv))
	default:
		return vm.fault(f, ErrTypeMismatch, "cannot order %s", kindOf(a))
	}
	var r bool
	switch op {
	case OpLess:
		r = cmp < 0
	case OpLessEq:
		r = cmp <= 0
	case OpGreater:
		r = cmp > 0
	case OpGreaterEq:
		r = cmp >= 0
	}
	f.push(Bool(r))
	return nil
}

func (vm *VM) subscript(f *frame, obj, idxV Value) (Value, error) {
	switch o := obj.(type) {
	case *List:
		idx, err := AsInt(idxV)
		if err != nil {
			return nil, vm.fault(f, ErrTypeMismatch, "subscript index must be a number")
		}
		if idx < 0 || idx >= len(o.Elems) {
			return nil, vm.fault(f, ErrIndexOutOfBounds, "index %d of %d", idx, len(o.Elems))
		}
		return o.Elems[idx], nil
	case String:
		idx, err := AsInt(idxV)
		if err != nil {
			return nil, vm.fault(f, ErrTypeMismatch, "subscript index must be a number")
		}
		if idx < 0 || idx >= len(o) {
			return nil, vm.fault(f, ErrIndexOutOfBounds, "index %d of %d", idx, len(o))
		}
		return String(o[idx : idx+1]), nil
	default:
		return nil, vm.fault(f, ErrTypeMismatch, "cannot subscript %s", kindOf(obj))
	}
}
