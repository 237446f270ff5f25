package ir

// Node is any program tree node.
type Node interface {
	Pos() Loc
}

// Expr is a sealed interface over expression nodes.
type Expr interface {
	Node
	exprNode()
}

// UnaryOp is a unary operator spelling.
type UnaryOp string

const (
	OpNeg     UnaryOp = "-"
	OpPlus    UnaryOp = "+"
	OpNot     UnaryOp = "!"
	OpBitNot  UnaryOp = "~"
	OpDeref   UnaryOp = "*"
	OpAddrOf  UnaryOp = "&"
	OpPreInc  UnaryOp = "++"
	OpPreDec  UnaryOp = "--"
	OpPostInc UnaryOp = "post++"
	OpPostDec UnaryOp = "post--"
)

// BinaryOp is a binary operator spelling.
type BinaryOp string

const (
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
	OpRem   BinaryOp = "%"
	OpShl   BinaryOp = "<<"
	OpShr   BinaryOp = ">>"
	OpAnd   BinaryOp = "&"
	OpOr    BinaryOp = "|"
	OpXor   BinaryOp = "^"
	OpLt    BinaryOp = "<"
	OpGt    BinaryOp = ">"
	OpLe    BinaryOp = "<="
	OpGe    BinaryOp = ">="
	OpEq    BinaryOp = "=="
	OpNe    BinaryOp = "!="
	OpCmp   BinaryOp = "<=>"
	OpLAnd  BinaryOp = "&&"
	OpLOr   BinaryOp = "||"
	OpComma BinaryOp = ","
)

// IsRelational reports whether op is one of < > <= >= == !=.
func (op BinaryOp) IsRelational() bool {
	switch op {
	case OpLt, OpGt, OpLe, OpGe, OpEq, OpNe:
		return true
	}
	return false
}

// CastKind is the conversion a Cast node performs.
type CastKind string

const (
	CastIntegral   CastKind = "integral"
	CastFloating   CastKind = "floating"
	CastIntToFloat CastKind = "int-to-float"
	CastFloatToInt CastKind = "float-to-int"
	CastToBool     CastKind = "to-bool"
	CastToBase     CastKind = "base"
	CastToDerived  CastKind = "derived"
	CastDynamic    CastKind = "dynamic"
	CastToVoid     CastKind = "void"
	CastBitcast    CastKind = "bitcast"
)

// IntLit is an integer literal of the given type (int when nil).
type IntLit struct {
	Loc
	Value int64
	Type  *Type
}

// FloatLit is a floating literal (double when Type is nil).
type FloatLit struct {
	Loc
	Value float64
	Type  *Type
}

// BoolLit is true or false.
type BoolLit struct {
	Loc
	Value bool
}

// NullLit is a null pointer or null member pointer constant of Type.
type NullLit struct {
	Loc
	Type *Type
}

// OrderingLit names a comparison category constant such as
// std::strong_ordering::less.
type OrderingLit struct {
	Loc
	Category OrderingCategory
	Outcome  Outcome
}

// Name refers to a local variable, parameter or global by name.
type Name struct {
	Loc
	Name string
}

// This is the implicit object pointer.
type This struct {
	Loc
}

// Unary applies a unary operator.
type Unary struct {
	Loc
	Op UnaryOp
	X  Expr
}

// Binary applies a binary operator. Operator is set when overload resolution
// picked a user-defined free operator function.
type Binary struct {
	Loc
	Op       BinaryOp
	X, Y     Expr
	Type     *Type
	Operator *FuncDecl
}

// Assign is plain (Op == "") or compound assignment.
type Assign struct {
	Loc
	Op   BinaryOp
	X, Y Expr
}

// Cond is the conditional operator.
type Cond struct {
	Loc
	Cond, Then, Else Expr
}

// Member is x.field or p->field. Fields of unambiguous bases are found
// through implicit derived-to-base conversion.
type Member struct {
	Loc
	X     Expr
	Arrow bool
	Field string
}

// Index is x[i] over an array glvalue or a pointer.
type Index struct {
	Loc
	X, Index Expr
}

// Call calls a free function, or the function a Callee pointer designates.
type Call struct {
	Loc
	Func   *FuncDecl
	Callee Expr
	Args   []Expr
}

// MethodCall calls a member function. Virtual members dispatch on the dynamic
// type unless Qualified.
type MethodCall struct {
	Loc
	Recv      Expr
	Arrow     bool
	Name      string
	Method    *FuncDecl
	Qualified bool
	Args      []Expr
}

// Construct is a class prvalue created by a constructor call. Ctor nil picks
// a user constructor by arity, falling back to the implicit default and copy
// constructors.
type Construct struct {
	Loc
	Type *Type
	Ctor *FuncDecl
	Args []Expr
}

// InitList is aggregate or array list-initialization. Field names the union
// member a designated initializer selects.
type InitList struct {
	Loc
	Type  *Type
	Elems []Expr
	Field string
}

// New is a new-expression. Count is nil for the scalar form. Init is the
// initializer of a scalar allocation; Elems initialize array elements when
// ListInit is set (missing elements are value-initialized).
type New struct {
	Loc
	Elem      *Type
	Count     Expr
	Init      Expr
	Elems     []Expr
	ListInit  bool
	Nothrow   bool
	Placement Expr
}

// Delete is delete p or delete[] p.
type Delete struct {
	Loc
	X     Expr
	Array bool
}

// Cast performs an explicit or implicit conversion to Type. Base, derived and
// dynamic casts to a class type are reference casts; to a pointer type they
// are pointer casts.
type Cast struct {
	Loc
	Kind CastKind
	Type *Type
	X    Expr
}

// TypeID is typeid(X) or typeid(Type). Type is the static type of the
// operand; X is nil for the type form.
type TypeID struct {
	Loc
	X    Expr
	Type *Type
}

// MemberPtr is &Class::member.
type MemberPtr struct {
	Loc
	Class  *ClassDecl
	Member string
}

// MemberAccess is x.*p or x->*p for a data member pointer.
type MemberAccess struct {
	Loc
	X     Expr
	Arrow bool
	Ptr   Expr
}

// FuncAddr is the address of a function.
type FuncAddr struct {
	Loc
	Func *FuncDecl
}

// Throw raises X.
type Throw struct {
	Loc
	X Expr
}

func (*IntLit) exprNode()       {}
func (*FloatLit) exprNode()     {}
func (*BoolLit) exprNode()      {}
func (*NullLit) exprNode()      {}
func (*OrderingLit) exprNode()  {}
func (*Name) exprNode()         {}
func (*This) exprNode()         {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*Assign) exprNode()       {}
func (*Cond) exprNode()         {}
func (*Member) exprNode()       {}
func (*Index) exprNode()        {}
func (*Call) exprNode()         {}
func (*MethodCall) exprNode()   {}
func (*Construct) exprNode()    {}
func (*InitList) exprNode()     {}
func (*New) exprNode()          {}
func (*Delete) exprNode()       {}
func (*Cast) exprNode()         {}
func (*TypeID) exprNode()       {}
func (*MemberPtr) exprNode()    {}
func (*MemberAccess) exprNode() {}
func (*FuncAddr) exprNode()     {}
func (*Throw) exprNode()        {}

// IsGLValue reports whether e designates an object rather than producing a
// value.
func IsGLValue(e Expr) bool {
	switch x := e.(type) {
	case *Name, *Index, *MemberAccess:
		return true
	case *Member:
		return x.Arrow || IsGLValue(x.X)
	case *Unary:
		return x.Op == OpDeref || x.Op == OpPreInc || x.Op == OpPreDec
	case *Assign:
		return true
	case *Binary:
		return x.Op == OpComma && IsGLValue(x.Y)
	case *Cond:
		return IsGLValue(x.Then) && IsGLValue(x.Else)
	case *Call:
		return x.Func != nil && x.Func.RefResult
	case *MethodCall:
		return x.Method != nil && x.Method.RefResult
	case *Cast:
		switch x.Kind {
		case CastToBase, CastToDerived, CastDynamic:
			return x.Type.Kind == KindClass
		}
	}
	return false
}
