package kanren

import (
	"fmt"
	"strconv"
	"strings"
)

// PrintTerm renders t using symbols' interned names in place of raw
// SymbolIDs, matching the surface form a fact or rule head would have
// been written in. Forward rendering only: there is no reader that turns
// this string back into a Term (§4.A "print_term").
func PrintTerm(t Term, symbols *SymbolTable) string {
	var b strings.Builder
	writeTerm(&b, t, symbols)
	return b.String()
}

func writeTerm(b *strings.Builder, t Term, symbols *SymbolTable) {
	switch v := t.(type) {
	case AtomTerm:
		b.WriteString(symbolName(symbols, v.Symbol))
	case VarTerm:
		fmt.Fprintf(b, "_G%d", v.ID)
	case IntegerTerm:
		b.WriteString(strconv.FormatInt(v.Value, 10))
	case CompoundTerm:
		b.WriteString(symbolName(symbols, v.Functor))
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTerm(b, a, symbols)
		}
		b.WriteByte(')')
	default:
		b.WriteString("?")
	}
}

func symbolName(symbols *SymbolTable, id SymbolID) string {
	if symbols == nil {
		return fmt.Sprintf("#%d", id)
	}
	return symbols.Name(id)
}

// PrintValue renders v the same way PrintTerm renders a Term, dereferencing
// bound variables transparently and falling back to a `_G<id>` placeholder
// for anything still unbound (§4.A "print_value"). Consumed values are
// annotated to make the linearity-violation scenarios in the examples
// legible in test failure output.
func PrintValue(v *Value, symbols *SymbolTable) string {
	var b strings.Builder
	writeValue(&b, v, symbols)
	return b.String()
}

func writeValue(b *strings.Builder, v *Value, symbols *SymbolTable) {
	v = Deref(v)
	switch v.Kind {
	case VLogicalVar:
		fmt.Fprintf(b, "_G%d", v.Var.ID)
	case VInteger:
		b.WriteString(strconv.FormatInt(v.Integer, 10))
	case VFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case VString:
		fmt.Fprintf(b, "%q", v.Str)
	case VAtom:
		b.WriteString(symbolName(symbols, v.Atom))
	case VList:
		b.WriteByte('[')
		for i, e := range v.List.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e, symbols)
		}
		b.WriteByte(']')
	case VRecord:
		b.WriteByte('{')
		for i, f := range v.Record.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", symbolName(symbols, f.Name))
			writeValue(b, f.Value, symbols)
		}
		b.WriteByte('}')
	case VCompound:
		b.WriteString(symbolName(symbols, v.Functor))
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, a, symbols)
		}
		b.WriteByte(')')
	case VFunction, VPartialApp:
		fmt.Fprintf(b, "%s/%d<%d applied>", v.Func.Name, v.Func.Arity, v.Func.AppliedCount)
	case VSuspension:
		b.WriteString("<suspension>")
	default:
		b.WriteString("?")
	}
	if v.IsConsumed {
		fmt.Fprintf(b, " [consumed x%d]", v.ConsumptionCount)
	}
}
