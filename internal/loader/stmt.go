package loader

import (
	"cuelang.org/go/cue"

	"github.com/roach88/consteval/internal/ir"
)

// stmtKeys are the discriminating keys of statement structs. "do" comes
// before "while" because do-while statements carry both.
var stmtKeys = []string{
	"block", "var", "expr", "if", "do", "while", "for", "range_for", "switch",
	"case", "default", "break", "continue", "return", "try",
}

// block compiles a list of statements. A single statement is accepted and
// wrapped.
func (c *compiler) block(v cue.Value) (*ir.Block, error) {
	b := &ir.Block{Loc: locOf(v)}
	if v.IncompleteKind() != cue.ListKind {
		st, err := c.stmt(v)
		if err != nil {
			return nil, err
		}
		b.Stmts = []ir.Stmt{st}
		return b, nil
	}
	err := eachOf(v, "body", func(sv cue.Value) error {
		st, err := c.stmt(sv)
		if err != nil {
			return err
		}
		b.Stmts = append(b.Stmts, st)
		return nil
	})
	return b, err
}

func (c *compiler) stmtField(v cue.Value, key string) (ir.Stmt, error) {
	f, ok := lookup(v, key)
	if !ok {
		return nil, errorf(v, key, "%s is required", key)
	}
	return c.stmt(f)
}

func (c *compiler) optStmt(v cue.Value, key string) (ir.Stmt, error) {
	f, ok := lookup(v, key)
	if !ok {
		return nil, nil
	}
	return c.stmt(f)
}

// stmt compiles one statement.
func (c *compiler) stmt(v cue.Value) (ir.Stmt, error) {
	if v.IncompleteKind() == cue.ListKind {
		return c.block(v)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, errorf(v, "stmt", "expected a statement")
	}
	loc := locOf(v)
	key := ""
	var f cue.Value
	for _, k := range stmtKeys {
		if fv, ok := lookup(v, k); ok {
			key, f = k, fv
			break
		}
	}
	switch key {
	case "block":
		return c.block(f)
	case "var":
		vd, err := c.varDecl(v)
		if err != nil {
			return nil, err
		}
		return &ir.Decl{Loc: loc, Var: vd}, nil
	case "expr":
		x, err := c.expr(f)
		if err != nil {
			return nil, err
		}
		return &ir.ExprStmt{Loc: loc, X: x}, nil
	case "if":
		st := &ir.If{Loc: loc}
		var err error
		if st.Init, st.CondVar, err = c.header(v); err != nil {
			return nil, err
		}
		if st.CondVar == nil {
			if st.Cond, err = c.expr(f); err != nil {
				return nil, err
			}
		}
		if st.Then, err = c.stmtField(v, "then"); err != nil {
			return nil, err
		}
		if st.Else, err = c.optStmt(v, "else"); err != nil {
			return nil, err
		}
		return st, nil
	case "do":
		body, err := c.stmt(f)
		if err != nil {
			return nil, err
		}
		cond, err := c.exprField(v, "while")
		if err != nil {
			return nil, err
		}
		return &ir.DoWhile{Loc: loc, Body: body, Cond: cond}, nil
	case "while":
		st := &ir.While{Loc: loc}
		var err error
		if _, st.CondVar, err = c.header(v); err != nil {
			return nil, err
		}
		if st.CondVar == nil {
			if st.Cond, err = c.expr(f); err != nil {
				return nil, err
			}
		}
		if st.Body, err = c.stmtField(v, "body"); err != nil {
			return nil, err
		}
		return st, nil
	case "for":
		st := &ir.For{Loc: loc}
		var err error
		if st.Init, st.CondVar, err = c.header(f); err != nil {
			return nil, err
		}
		if st.Cond, err = c.optExpr(f, "cond"); err != nil {
			return nil, err
		}
		if st.Inc, err = c.optExpr(f, "inc"); err != nil {
			return nil, err
		}
		if st.Body, err = c.stmtField(v, "body"); err != nil {
			return nil, err
		}
		return st, nil
	case "range_for":
		st := &ir.RangeFor{Loc: loc}
		var err error
		if st.Init, err = c.optStmt(v, "init"); err != nil {
			return nil, err
		}
		if st.Range, err = c.expr(f); err != nil {
			return nil, err
		}
		iv, ok := lookup(v, "each")
		if !ok {
			return nil, errorf(v, "each", "range_for needs each: {var: ...}")
		}
		if st.Var, err = c.varDecl(iv); err != nil {
			return nil, err
		}
		if st.Body, err = c.stmtField(v, "body"); err != nil {
			return nil, err
		}
		return st, nil
	case "switch":
		st := &ir.Switch{Loc: loc}
		var err error
		if st.Init, st.CondVar, err = c.header(v); err != nil {
			return nil, err
		}
		if st.CondVar == nil {
			if st.Cond, err = c.expr(f); err != nil {
				return nil, err
			}
		}
		if st.Body, err = c.stmtField(v, "body"); err != nil {
			return nil, err
		}
		return st, nil
	case "case":
		n, err := f.Int64()
		if err != nil {
			return nil, errorf(f, key, "case label must be an integer")
		}
		return &ir.Case{Loc: loc, Value: n}, nil
	case "default":
		return &ir.Case{Loc: loc, Default: true}, nil
	case "break":
		return &ir.Break{Loc: loc}, nil
	case "continue":
		return &ir.Continue{Loc: loc}, nil
	case "return":
		if f.IsNull() {
			return &ir.Return{Loc: loc}, nil
		}
		x, err := c.exprFor(f, c.result)
		if err != nil {
			return nil, err
		}
		return &ir.Return{Loc: loc, X: x}, nil
	case "try":
		return c.try(v, f, loc)
	}
	return nil, errorf(v, "stmt", "unknown statement form")
}

// header compiles the optional init-statement and condition variable of a
// selection or iteration statement.
func (c *compiler) header(v cue.Value) (ir.Stmt, *ir.VarDecl, error) {
	init, err := c.optStmt(v, "init")
	if err != nil {
		return nil, nil, err
	}
	cv, ok := lookup(v, "cond_var")
	if !ok {
		return init, nil, nil
	}
	vd, err := c.varDecl(cv)
	return init, vd, err
}

// varDecl compiles {var: name, type: T, init: e, ref: bool}.
func (c *compiler) varDecl(v cue.Value) (*ir.VarDecl, error) {
	name, err := requireStr(v, "var")
	if err != nil {
		return nil, err
	}
	vd := &ir.VarDecl{Loc: locOf(v), Name: name}
	if vd.Type, err = c.typeField(v, "type", false); err != nil {
		return nil, err
	}
	if vd.Ref, err = boolField(v, "ref", false); err != nil {
		return nil, err
	}
	if iv, ok := lookup(v, "init"); ok {
		if vd.Init, err = c.exprFor(iv, vd.Type); err != nil {
			return nil, err
		}
	}
	if vd.Type == nil && !vd.Ref {
		return nil, errorf(v, "type", "variable %q needs a type", name)
	}
	if vd.Ref && vd.Init == nil {
		return nil, errorf(v, "init", "reference %q must be initialized", name)
	}
	return vd, nil
}

func (c *compiler) try(v, f cue.Value, loc ir.Loc) (ir.Stmt, error) {
	body, err := c.block(f)
	if err != nil {
		return nil, err
	}
	st := &ir.Try{Loc: loc, Body: body}
	err = each(v, "catch", func(hv cue.Value) error {
		h := &ir.Handler{Loc: locOf(hv)}
		var err error
		if h.Type, err = c.typeField(hv, "type", false); err != nil {
			return err
		}
		if h.Var, err = str(hv, "var"); err != nil {
			return err
		}
		h.Body = &ir.Block{Loc: h.Loc}
		if bv, ok := lookup(hv, "body"); ok {
			if h.Body, err = c.block(bv); err != nil {
				return err
			}
		}
		st.Handlers = append(st.Handlers, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(st.Handlers) == 0 {
		return nil, errorf(v, "catch", "try needs at least one catch clause")
	}
	return st, nil
}
