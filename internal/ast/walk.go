package ast

// Inspect traverses the tree rooted at node in depth-first order. It calls
// fn(node) and descends into the children when fn returns true.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, stmt := range n.Statements {
			Inspect(stmt, fn)
		}
	case *FunctionDecl:
		Inspect(n.Body, fn)
	case *ClassDecl:
		for _, f := range n.Fields {
			Inspect(f.Default, fn)
		}
	case *VarDecl:
		Inspect(n.Init, fn)
	case *Block:
		for _, stmt := range n.Statements {
			Inspect(stmt, fn)
		}
	case *ExprStmt:
		Inspect(n.Expr, fn)
	case *Assignment:
		Inspect(n.Target, fn)
		Inspect(n.Value, fn)
	case *ReturnStmt:
		if n.Value != nil {
			Inspect(n.Value, fn)
		}
	case *BinaryExpr:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *UnaryExpr:
		Inspect(n.Operand, fn)
	case *IfExpr:
		Inspect(n.Condition, fn)
		Inspect(n.Then, fn)
		if n.Else != nil {
			Inspect(n.Else, fn)
		}
	case *CallExpr:
		Inspect(n.Callee, fn)
		for _, arg := range n.Arguments {
			Inspect(arg, fn)
		}
	case *MemberExpr:
		Inspect(n.Receiver, fn)
	}
}
