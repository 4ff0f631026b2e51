package function

import (
	"strings"
	"time"

	"github.com/quilldb/quill/sql"
	"github.com/quilldb/quill/sql/kernel"
	"golang.org/x/exp/rand"
)

var builtins = []*Definition{
	{
		Name: "abs", MinArity: 1, MaxArity: 1,
		ReturnType: func(args []kernel.Type) kernel.Type { return args[0] },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			return mapUnary(args[0], func(v interface{}) interface{} {
				switch x := v.(type) {
				case int64:
					if x < 0 {
						return -x
					}
					return x
				case float64:
					if x < 0 {
						return -x
					}
					return x
				default:
					return v
				}
			}), nil
		},
	},
	{
		Name: "mod", MinArity: 2, MaxArity: 2,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.Int64 },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			a, b := args[0].(*kernel.Int64Array), args[1].(*kernel.Int64Array)
			out := kernel.NewI64Array(n)
			for i := 0; i < n; i++ {
				av, aok := a.Get(i)
				bv, bok := b.Get(i)
				if !aok || !bok || bv == 0 {
					out.AppendNull()
					continue
				}
				out.Push(av%bv, true)
			}
			return out, nil
		},
	},
	{
		Name: "lower", MinArity: 1, MaxArity: 1,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.String },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			return mapString(args[0], strings.ToLower), nil
		},
	},
	{
		Name: "upper", MinArity: 1, MaxArity: 1,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.String },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			return mapString(args[0], strings.ToUpper), nil
		},
	},
	{
		Name: "length", MinArity: 1, MaxArity: 1,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.Int64 },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			s := args[0].(*kernel.StringArray)
			out := kernel.NewI64Array(n)
			for i := 0; i < n; i++ {
				v, ok := s.Get(i)
				if !ok {
					out.AppendNull()
					continue
				}
				out.Push(int64(len(v)), true)
			}
			return out, nil
		},
	},
	{
		Name: "concat", MinArity: 1, MaxArity: -1,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.String },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			out := kernel.NewStringArray(n)
			for i := 0; i < n; i++ {
				var sb strings.Builder
				anyNull := false
				for _, a := range args {
					s := a.(*kernel.StringArray)
					v, ok := s.Get(i)
					if !ok {
						anyNull = true
						break
					}
					sb.WriteString(v)
				}
				if anyNull {
					out.AppendNull()
					continue
				}
				out.Push(sb.String(), true)
			}
			return out, nil
		},
	},
	{
		Name: "substr", MinArity: 2, MaxArity: 3,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.String },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			s := args[0].(*kernel.StringArray)
			start := args[1].(*kernel.Int64Array)
			var length *kernel.Int64Array
			if len(args) == 3 {
				length = args[2].(*kernel.Int64Array)
			}
			out := kernel.NewStringArray(n)
			for i := 0; i < n; i++ {
				sv, ok := s.Get(i)
				pos, posOk := start.Get(i)
				if !ok || !posOk {
					out.AppendNull()
					continue
				}
				out.Push(substrValue(sv, pos, length, i), true)
			}
			return out, nil
		},
	},
	{
		Name: "coalesce", MinArity: 1, MaxArity: -1,
		ReturnType: func(args []kernel.Type) kernel.Type { return args[0] },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			out := args[0].NewEmpty(n)
			for i := 0; i < n; i++ {
				found := false
				for _, a := range args {
					if !a.IsNull(i) {
						out.AppendFrom(a, i)
						found = true
						break
					}
				}
				if !found {
					out.AppendNull()
				}
			}
			return out, nil
		},
	},
	{
		Name: "current_date", MinArity: 0, MaxArity: 0,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.Date },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			day := kernel.EpochDay(statementTime(ctx))
			out := kernel.NewDateArray(n)
			for i := 0; i < n; i++ {
				out.Push(day, true)
			}
			return out, nil
		},
	},
	{
		Name: "current_timestamp", MinArity: 0, MaxArity: 0,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.Timestamp },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			micros := statementTime(ctx).UnixMicro()
			out := kernel.NewTimestampArray(n)
			for i := 0; i < n; i++ {
				out.Push(micros, true)
			}
			return out, nil
		},
	},
	{
		Name: "rand", MinArity: 0, MaxArity: 1,
		ReturnType: func(args []kernel.Type) kernel.Type { return kernel.Float64 },
		Eval: func(ctx *sql.Context, args []kernel.AnyArray, n int) (kernel.AnyArray, error) {
			src := rand.New(rand.NewSource(uint64(statementTime(ctx).UnixNano())))
			if len(args) == 1 {
				if seed, ok := args[0].(*kernel.Int64Array).Get(0); ok {
					src = rand.New(rand.NewSource(uint64(seed)))
				}
			}
			out := kernel.NewF64Array(n)
			for i := 0; i < n; i++ {
				out.Push(src.Float64(), true)
			}
			return out, nil
		},
	},
}

func substrValue(s string, pos int64, length *kernel.Int64Array, row int) string {
	runes := []rune(s)
	start := int(pos) - 1
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		return ""
	}
	end := len(runes)
	if length != nil {
		if l, ok := length.Get(row); ok {
			end = start + int(l)
			if end > len(runes) {
				end = len(runes)
			}
		}
	}
	if end < start {
		return ""
	}
	return string(runes[start:end])
}

func mapString(a kernel.AnyArray, f func(string) string) kernel.AnyArray {
	s := a.(*kernel.StringArray)
	out := kernel.NewStringArray(s.Len())
	for i := 0; i < s.Len(); i++ {
		v, ok := s.Get(i)
		if !ok {
			out.AppendNull()
			continue
		}
		out.Push(f(v), true)
	}
	return out
}

func mapUnary(a kernel.AnyArray, f func(interface{}) interface{}) kernel.AnyArray {
	out := a.NewEmpty(a.Len())
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) {
			out.AppendNull()
			continue
		}
		switch x := a.(type) {
		case *kernel.Int64Array:
			v, _ := x.Get(i)
			out.(*kernel.Int64Array).Push(f(v).(int64), true)
		case *kernel.Float64Array:
			v, _ := x.Get(i)
			out.(*kernel.Float64Array).Push(f(v).(float64), true)
		default:
			out.AppendFrom(a, i)
		}
	}
	return out
}

type statementTimeKey struct{}

// statementTime returns the instant every CURRENT_DATE/CURRENT_TIMESTAMP/
// RAND call within one statement should be evaluated against, so that two
// references within the same query see the same value. Callers stash it
// into ctx at statement start; it defaults to the wall clock if absent.
func statementTime(ctx *sql.Context) time.Time {
	if v, ok := ctx.Value(statementTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// StatementTimeKey exposes the context key used to pin a statement's
// notion of "now", for the Engine to set once per query.
func StatementTimeKey() interface{} { return statementTimeKey{} }
