// Package analyzer reports task handlers whose signature the worker rejects at registration.
package analyzer

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	taskPkg = "github.com/cschleiden/go-zeebe/task"
	jobType = "*github.com/cschleiden/go-zeebe/job.Job"
)

// registrations maps the functions taking a handler to the index of their handler argument.
var registrations = map[string]int{
	"(*github.com/cschleiden/go-zeebe/task.Router).Task":   1,
	"(*github.com/cschleiden/go-zeebe/worker.Worker).Task": 1,
	"github.com/cschleiden/go-zeebe/task.New":              1,
	"github.com/cschleiden/go-zeebe/tasktester.RunHandler": 2,
}

var Analyzer = New(nil)

// New returns an analyzer that also checks the functions in extra, keyed by their full name such as
// "(*example.com/payments.Registry).Add", with the index of their handler argument. The argument
// before the handler is treated as its task.Config.
func New(extra map[string]int) *analysis.Analyzer {
	funcs := make(map[string]int, len(registrations)+len(extra))
	for name, idx := range registrations {
		funcs[name] = idx
	}
	for name, idx := range extra {
		funcs[name] = idx
	}

	return &analysis.Analyzer{
		Name: "gozeebe",
		Doc:  "Checks the signatures of task handlers",
		Run: func(pass *analysis.Pass) (interface{}, error) {
			return run(pass, funcs)
		},
		Requires: []*analysis.Analyzer{inspect.Analyzer},
	}
}

func run(pass *analysis.Pass, funcs map[string]int) (interface{}, error) {
	inspector := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.CallExpr)(nil)}

	inspector.Preorder(nodeFilter, func(node ast.Node) {
		call := node.(*ast.CallExpr)

		fn := calledFunc(pass, call)
		if fn == nil {
			return
		}

		idx, ok := funcs[fn.FullName()]
		if !ok || idx < 0 || len(call.Args) <= idx {
			return
		}

		handler := call.Args[idx]

		sig, ok := pass.TypesInfo.TypeOf(handler).(*types.Signature)
		if !ok {
			pass.Reportf(handler.Pos(), "task handler must be a function")
			return
		}

		var cfg *ast.CompositeLit
		if idx > 0 {
			cfg = taskConfig(call.Args[idx-1])
		}

		checkHandler(pass, handler, sig, cfg)
	})

	return nil, nil
}

func calledFunc(pass *analysis.Pass, call *ast.CallExpr) *types.Func {
	var ident *ast.Ident
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		ident = fun
	case *ast.SelectorExpr:
		ident = fun.Sel
	default:
		return nil
	}

	fn, _ := pass.TypesInfo.Uses[ident].(*types.Func)
	return fn
}

func checkHandler(pass *analysis.Pass, handler ast.Expr, sig *types.Signature, cfg *ast.CompositeLit) {
	if sig.Variadic() {
		pass.Reportf(handler.Pos(), "task handler must not be variadic")
		return
	}

	// Parameters: [context.Context,] [*job.Job,] [input]
	params := sig.Params()
	i := 0
	if i < params.Len() && types.TypeString(params.At(i).Type(), nil) == "context.Context" {
		i++
	}
	if i < params.Len() && types.TypeString(params.At(i).Type(), nil) == jobType {
		i++
	}
	if i < params.Len() {
		if !isObject(params.At(i).Type()) {
			pass.Reportf(handler.Pos(), "task handler input must be a struct or a map with string keys, got %s",
				params.At(i).Type())
			return
		}
		i++
	}
	if i < params.Len() {
		pass.Reportf(handler.Pos(), "task handler has unexpected parameter %s", params.At(i).Type())
		return
	}

	results := sig.Results()
	switch {
	case results.Len() == 0:
		pass.Reportf(handler.Pos(), "task handler doesn't return anything. needs to return at least `error`")
		return
	case results.Len() > 2:
		pass.Reportf(handler.Pos(), "task handler returns more than two values")
		return
	case types.TypeString(results.At(results.Len()-1).Type(), nil) != "error":
		pass.Reportf(handler.Pos(), "task handler doesn't return `error` as last return value")
		return
	}

	if results.Len() == 2 && !isObject(results.At(0).Type()) && cfg != nil && !setsSingleValue(pass, cfg) {
		pass.Reportf(handler.Pos(), "task handler returns a single value, configure SingleValue and VariableName")
	}
}

func isObject(t types.Type) bool {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}

	switch u := t.Underlying().(type) {
	case *types.Struct:
		return true
	case *types.Map:
		b, ok := u.Key().Underlying().(*types.Basic)
		return ok && b.Kind() == types.String
	}

	return false
}

// taskConfig returns the task.Config literal passed with a handler. Configs built elsewhere are not checked.
func taskConfig(expr ast.Expr) *ast.CompositeLit {
	lit, ok := ast.Unparen(expr).(*ast.CompositeLit)
	if !ok {
		return nil
	}

	return lit
}

func setsSingleValue(pass *analysis.Pass, cfg *ast.CompositeLit) bool {
	if t := pass.TypesInfo.TypeOf(cfg); t == nil || types.TypeString(t, nil) != taskPkg+".Config" {
		return true
	}

	for _, elt := range cfg.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}

		if key, ok := kv.Key.(*ast.Ident); ok && key.Name == "SingleValue" {
			// Only a literal false is known to be unset
			if v, ok := kv.Value.(*ast.Ident); ok && v.Name == "false" {
				return false
			}
			return true
		}
	}

	return false
}
