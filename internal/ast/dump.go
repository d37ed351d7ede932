package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree one node per line, indented by depth. Resolver
// annotations (types, slots, layouts) are shown when present.
func Dump(node Node) string {
	d := &dumper{}
	d.node(node, 0)
	return d.b.String()
}

type dumper struct {
	b strings.Builder
}

func (d *dumper) line(depth int, format string, args ...any) {
	d.b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteByte('\n')
}

func typeSuffix(e Expression) string {
	if t := e.ResolvedType(); t != nil {
		return " : " + t.String()
	}
	return ""
}

func storageSuffix(s Storage, resolved bool) string {
	if !resolved {
		return ""
	}
	if s.Global {
		return fmt.Sprintf(" [global #%d]", s.Slot)
	}
	return fmt.Sprintf(" [local #%d]", s.Slot)
}

func (d *dumper) node(node Node, depth int) {
	switch n := node.(type) {
	case *Program:
		d.line(depth, "Program")
		for _, stmt := range n.Statements {
			d.node(stmt, depth+1)
		}

	case *FunctionDecl:
		var params []string
		for _, p := range n.Parameters {
			params = append(params, p.String())
		}
		ret := ""
		if n.Return != nil {
			ret = " -> " + n.Return.String()
		} else if n.ReturnType != nil {
			ret = " -> " + n.ReturnType.Name
		}
		frame := ""
		if n.Return != nil {
			frame = fmt.Sprintf(" (frame %d)", n.FrameSize)
		}
		d.line(depth, "FunctionDecl %s(%s)%s%s", n.Name, strings.Join(params, ", "), ret, frame)
		d.node(n.Body, depth+1)

	case *ClassDecl:
		size := ""
		if n.Resolved != nil && n.Resolved.Class.Frozen() {
			size = fmt.Sprintf(" (size %d)", n.Resolved.Class.InstanceSize)
		}
		d.line(depth, "ClassDecl %s%s", n.Name, size)
		for _, f := range n.Fields {
			kw := "val"
			if f.Mutable {
				kw = "var"
			}
			off := ""
			if f.Field != nil {
				off = fmt.Sprintf(" @%d", f.Field.Offset)
			}
			d.line(depth+1, "Field %s %s: %s%s", kw, f.Name, f.Type.Name, off)
			d.node(f.Default, depth+2)
		}

	case *VarDecl:
		kw := "val"
		if n.Mutable {
			kw = "var"
		}
		typ := ""
		if n.Resolved != nil {
			typ = ": " + n.Resolved.String()
		} else if n.DeclaredType != nil {
			typ = ": " + n.DeclaredType.Name
		}
		d.line(depth, "VarDecl %s %s%s%s", kw, n.Name, typ, storageSuffix(n.Storage, n.Resolved != nil))
		d.node(n.Init, depth+1)

	case *Block:
		d.line(depth, "Block")
		for _, stmt := range n.Statements {
			d.node(stmt, depth+1)
		}

	case *ExprStmt:
		d.line(depth, "ExprStmt")
		d.node(n.Expr, depth+1)

	case *Assignment:
		d.line(depth, "Assignment")
		d.node(n.Target, depth+1)
		d.node(n.Value, depth+1)

	case *ReturnStmt:
		d.line(depth, "Return")
		if n.Value != nil {
			d.node(n.Value, depth+1)
		}

	case *Literal:
		d.line(depth, "Literal %s%s", n, typeSuffix(n))

	case *Identifier:
		d.line(depth, "Identifier %s%s%s", n.Name, typeSuffix(n), storageSuffix(n.Storage, n.Type != nil))

	case *BinaryExpr:
		d.line(depth, "Binary %s%s", n.Operator, typeSuffix(n))
		d.node(n.Left, depth+1)
		d.node(n.Right, depth+1)

	case *UnaryExpr:
		d.line(depth, "Unary %s%s", n.Operator, typeSuffix(n))
		d.node(n.Operand, depth+1)

	case *IfExpr:
		d.line(depth, "If%s", typeSuffix(n))
		d.node(n.Condition, depth+1)
		d.line(depth+1, "Then")
		d.node(n.Then, depth+2)
		if n.Else != nil {
			d.line(depth+1, "Else")
			d.node(n.Else, depth+2)
		}

	case *CallExpr:
		d.line(depth, "Call %s%s", n.Callee, typeSuffix(n))
		for _, arg := range n.Arguments {
			d.node(arg, depth+1)
		}

	case *MemberExpr:
		off := ""
		if n.Resolved != nil {
			off = fmt.Sprintf(" @%d", n.Resolved.Offset)
		}
		d.line(depth, "Member .%s%s%s", n.Field, typeSuffix(n), off)
		d.node(n.Receiver, depth+1)

	default:
		d.line(depth, "%T", node)
	}
}
