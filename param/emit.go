package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/internal/ident"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

// The methods below produce Go source fragments for generated wrappers.
// enumType is the name the wrapper gives the companion type of an enum
// value; it is ignored for other kinds.

// GoType names the Go type that holds the value in generated code.
func (p *Param) GoType(enumType string) string {
	switch p.kind {
	case KindInt:
		return fmt.Sprintf("int%d", p.bits)
	case KindUint:
		return fmt.Sprintf("uint%d", p.bits)
	case KindFloat:
		return fmt.Sprintf("float%d", p.bits)
	case KindBool:
		return "bool"
	case KindEnum:
		return enumType
	case KindType:
		return "elemtype.Type"
	case KindTarget:
		return "target.Target"
	case KindLoopLevel:
		return "pipeline.LoopLevel"
	}
	return "any"
}

// EnumConst names the generated constant for an enum entry.
func EnumConst(enumType, name string) string {
	return enumType + ident.Exported(name)
}

// TypeDecls returns the companion enum type, its constants and a
// value-to-name and name-to-value lookup. Non-enum values need no
// declarations and return "".
func (p *Param) TypeDecls(enumType string) string {
	if p.kind != KindEnum {
		return ""
	}
	table := strings.ToLower(enumType[:1]) + enumType[1:] + "Names"

	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s enumerates the values of %q.\n", enumType, p.name)
	fmt.Fprintf(&sb, "type %s int\n\n", enumType)
	sb.WriteString("const (\n")
	for _, e := range p.enum {
		fmt.Fprintf(&sb, "\t%s %s = %d\n", EnumConst(enumType, e.Name), enumType, e.Value)
	}
	sb.WriteString(")\n\n")

	fmt.Fprintf(&sb, "var %s = map[%s]string{\n", table, enumType)
	for _, e := range p.enum {
		fmt.Fprintf(&sb, "\t%s: %q,\n", EnumConst(enumType, e.Name), e.Name)
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "func (v %s) String() string {\n", enumType)
	fmt.Fprintf(&sb, "\tif s, ok := %s[v]; ok {\n\t\treturn s\n\t}\n", table)
	fmt.Fprintf(&sb, "\treturn \"%s(\" + strconv.Itoa(int(v)) + \")\"\n}\n\n", enumType)

	fmt.Fprintf(&sb, "// Parse%s looks up a value by name.\n", enumType)
	fmt.Fprintf(&sb, "func Parse%s(s string) (%s, bool) {\n", enumType, enumType)
	fmt.Fprintf(&sb, "\tfor v, name := range %s {\n\t\tif name == s {\n\t\t\treturn v, true\n\t\t}\n\t}\n", table)
	sb.WriteString("\treturn 0, false\n}\n")
	return sb.String()
}

// DefaultLiteral renders the declared default as a Go expression.
func (p *Param) DefaultLiteral(enumType string) string {
	switch x := p.def.(type) {
	case IntValue, UintValue, BoolValue:
		return format(x, p.bits)
	case FloatValue:
		f := float64(x)
		s := format(x, p.bits)
		switch {
		case math.IsNaN(f):
			return "float" + strconv.Itoa(p.bits) + "(math.NaN())"
		case f > 0 && s == "+Inf":
			return "float" + strconv.Itoa(p.bits) + "(math.Inf(1))"
		case f < 0 && s == "-Inf":
			return "float" + strconv.Itoa(p.bits) + "(math.Inf(-1))"
		}
		return s
	case EnumValue:
		return EnumConst(enumType, string(x))
	case TypeValue:
		return typeLiteral(elemtype.Type(x))
	case TargetValue:
		return fmt.Sprintf("target.MustParse(%q)", target.Target(x).String())
	case LoopLevelValue:
		return pipeline.LoopLevel(x).GoString()
	}
	return "nil"
}

func typeLiteral(t elemtype.Type) string {
	switch {
	case t.IsBool():
		return "elemtype.Bool()"
	case t.Code == elemtype.CodeInt:
		return fmt.Sprintf("elemtype.Int(%d)", t.Bits)
	case t.Code == elemtype.CodeUInt:
		return fmt.Sprintf("elemtype.UInt(%d)", t.Bits)
	case t.Code == elemtype.CodeFloat:
		return fmt.Sprintf("elemtype.Float(%d)", t.Bits)
	}
	return "elemtype.Handle()"
}

// ToStringExpr returns a Go expression converting expr, of type GoType, to
// the text SetFromText accepts.
func (p *Param) ToStringExpr(expr string) string {
	switch p.kind {
	case KindInt:
		return fmt.Sprintf("strconv.FormatInt(int64(%s), 10)", expr)
	case KindUint:
		return fmt.Sprintf("strconv.FormatUint(uint64(%s), 10)", expr)
	case KindFloat:
		return fmt.Sprintf("strconv.FormatFloat(float64(%s), 'g', -1, %d)", expr, p.bits)
	case KindBool:
		return fmt.Sprintf("strconv.FormatBool(%s)", expr)
	}
	return expr + ".String()"
}
