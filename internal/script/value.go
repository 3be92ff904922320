package script

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindSymbol
	KindRange
	KindList
	KindRef
	KindObject
	KindFunction
	KindFuture
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindRange:
		return "range"
	case KindList:
		return "list"
	case KindRef:
		return "reference"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindFuture:
		return "future"
	}
	return "?"
}

// Value is the tagged union flowing through the VM and the entity graph.
type Value interface {
	Kind() Kind
}

type Nil struct{}

type Bool bool

type Number float64

type String string

// Symbol is an interned name, distinct from String.
type Symbol string

// Range is an inclusive integer range.
type Range struct {
	Lo, Hi int
}

// List is an ordered mutable sequence; always handled as *List so subscript
// stores are visible to every holder.
type List struct {
	Elems []Value
}

// RefValue wraps a Ref as a first-class value (the `@name` literal form).
type RefValue struct {
	Ref Ref
}

// Future wraps a deferred continuation: Run receives a zero-argument resume
// callback and arranges for it to be invoked later on the tick loop.
type Future struct {
	Run func(resume func())
}

func (Nil) Kind() Kind      { return KindNil }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Symbol) Kind() Kind   { return KindSymbol }
func (Range) Kind() Kind    { return KindRange }
func (*List) Kind() Kind    { return KindList }
func (RefValue) Kind() Kind { return KindRef }
func (*Future) Kind() Kind  { return KindFuture }

// Object is implemented by world types exposed to scripts: entities, quests,
// races, and modules. Member lookup falls through to the delegate when the
// object itself has no binding.
type Object interface {
	Value
	GetMember(name string) (Value, bool)
	SetMember(name string, v Value) error
	Delegate() Object
}

// Named is implemented by objects that can appear in prose. BriefName
// returns the indefinite article ("a"/"an"/"" for proper nouns) and the
// noun phrase.
type Named interface {
	BriefName() (article, noun string)
}

// Function is any callable value.
type Function interface {
	Value
	FuncName() string
}

// ScriptFunction is a compiled wyrdscript function. Params carry the event
// constraints used by the dispatcher; the VM itself ignores them.
type ScriptFunction struct {
	Name   string
	Params []Param
	Chunk  *Chunk
}

func (*ScriptFunction) Kind() Kind         { return KindFunction }
func (f *ScriptFunction) FuncName() string { return f.Name }

// NativeFunction is a Go function exposed to scripts.
type NativeFunction struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (*NativeFunction) Kind() Kind         { return KindFunction }
func (f *NativeFunction) FuncName() string { return f.Name }

// BoundMethod pairs a function with the object it was loaded from; calling
// it prepends the receiver to the argument list.
type BoundMethod struct {
	Receiver Value
	Method   Function
}

func (*BoundMethod) Kind() Kind         { return KindFunction }
func (m *BoundMethod) FuncName() string { return m.Method.FuncName() }

// Truthy: nil and false are falsy, everything else truthy.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil, Nil:
		return false
	case Bool:
		return bool(t)
	default:
		return true
	}
}

// Equal implements script equality: defined for primitives and object
// identity; mixed-variant comparisons are false.
func Equal(a, b Value) bool {
	if a == nil {
		a = Nil{}
	}
	if b == nil {
		b = Nil{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Nil:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	case Symbol:
		return av == b.(Symbol)
	case Range:
		return av == b.(Range)
	case RefValue:
		return av.Ref == b.(RefValue).Ref
	default:
		// Lists, objects, functions, futures compare by identity.
		return a == b
	}
}

// FormatNumber renders a number without a spurious fractional part.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ToString renders a value for interpolation under the given format byte
// (0 for plain, or one of i I d D n N).
func ToString(v Value, format byte) string {
	s := describe(v, format)
	switch format {
	case 'I', 'D', 'N':
		s = capitalize(s)
	}
	return s
}

func describe(v Value, format byte) string {
	switch t := v.(type) {
	case nil, Nil:
		return "nil"
	case Bool:
		if t {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(float64(t))
	case String:
		return string(t)
	case Symbol:
		return string(t)
	case Range:
		return FormatNumber(float64(t.Lo)) + ".." + FormatNumber(float64(t.Hi))
	case RefValue:
		return t.Ref.String()
	case *List:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = describe(e, format)
		}
		return strings.Join(parts, ", ")
	case Function:
		return "<function " + t.FuncName() + ">"
	case *Future:
		return "<future>"
	}
	if named, ok := v.(Named); ok {
		article, noun := named.BriefName()
		switch format {
		case 'd', 'D':
			if article == "" {
				return noun
			}
			return "the " + noun
		case 'n', 'N':
			return noun
		default: // indefinite, also the plain fallback for objects
			if article == "" {
				return noun
			}
			return article + " " + noun
		}
	}
	return "<object>"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// AsNumber extracts a float64, reporting a type mismatch otherwise.
func AsNumber(v Value) (float64, error) {
	if n, ok := v.(Number); ok {
		return float64(n), nil
	}
	return 0, ErrTypeMismatch
}

// AsInt extracts an integral number.
func AsInt(v Value) (int, error) {
	n, err := AsNumber(v)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// AsString extracts a string value.
func AsString(v Value) (string, error) {
	if s, ok := v.(String); ok {
		return string(s), nil
	}
	return "", ErrTypeMismatch
}

// NewList builds a list value from elements.
func NewList(elems ...Value) *List {
	return &List{Elems: elems}
}
