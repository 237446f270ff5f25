package ir

// Stmt is a sealed interface over statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// VarDecl declares a local variable. Ref declarations bind to the object Init
// designates; a class prvalue bound to a reference is lifetime-extended.
type VarDecl struct {
	Loc
	Name string
	Type *Type
	Init Expr
	Ref  bool
}

// Block is a compound statement with its own scope.
type Block struct {
	Loc
	Stmts []Stmt
}

// Decl declares one local variable.
type Decl struct {
	Loc
	Var *VarDecl
}

// ExprStmt evaluates X as a full-expression and discards the result.
type ExprStmt struct {
	Loc
	X Expr
}

// If is if (init; cond) then else. CondVar, when set, is declared in the
// statement's scope and its value is the condition.
type If struct {
	Loc
	Init    Stmt
	CondVar *VarDecl
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

// While is while (cond) body.
type While struct {
	Loc
	CondVar *VarDecl
	Cond    Expr
	Body    Stmt
}

// DoWhile is do body while (cond).
type DoWhile struct {
	Loc
	Body Stmt
	Cond Expr
}

// For is for (init; cond; inc) body.
type For struct {
	Loc
	Init    Stmt
	CondVar *VarDecl
	Cond    Expr
	Inc     Expr
	Body    Stmt
}

// RangeFor is for (init; var : range) body over an array glvalue.
type RangeFor struct {
	Loc
	Init  Stmt
	Var   *VarDecl
	Range Expr
	Body  Stmt
}

// Switch is switch (init; cond) body. Case labels are statements inside Body.
type Switch struct {
	Loc
	Init    Stmt
	CondVar *VarDecl
	Cond    Expr
	Body    Stmt
}

// Case labels the statement that follows it in its block. Default labels
// set Default and ignore Value.
type Case struct {
	Loc
	Value   int64
	Default bool
}

// Break leaves the innermost loop or switch.
type Break struct {
	Loc
}

// Continue jumps to the next iteration of the innermost loop.
type Continue struct {
	Loc
}

// Return leaves the function; X is nil for void returns.
type Return struct {
	Loc
	X Expr
}

// Handler is one catch clause. A nil Type catches everything.
type Handler struct {
	Loc
	Type *Type
	Var  string
	Body *Block
}

// Try is a try block with its handlers.
type Try struct {
	Loc
	Body     *Block
	Handlers []*Handler
}

func (*Block) stmtNode()    {}
func (*Decl) stmtNode()     {}
func (*ExprStmt) stmtNode() {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*DoWhile) stmtNode()  {}
func (*For) stmtNode()      {}
func (*RangeFor) stmtNode() {}
func (*Switch) stmtNode()   {}
func (*Case) stmtNode()     {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Try) stmtNode()      {}
