package assemble

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/ash-lang/ash/internal/asm"
)

// Asm renders ops as a human-readable listing, one instruction per line,
// with LABEL targets printed symbolically rather than resolved. This is the
// textual counterpart to Assemble and exists for the same reason the
// teacher's compiler carries an Asm/Dasm pair: golden-file tests and `ash
// asm compile`/`ash asm run` can exercise the pipeline without a front end.
func Asm(ops []asm.Op) string {
	var b strings.Builder
	for _, op := range ops {
		fmt.Fprintln(&b, asmLine(op))
	}
	return b.String()
}

func asmLine(op asm.Op) string {
	switch op.Code {
	case asm.LABEL:
		return fmt.Sprintf("label L%d:", op.Arg)
	case asm.JMP, asm.BJMP, asm.JUMPIFFALSE:
		return fmt.Sprintf("%s L%d", op.Code, op.Arg)
	case asm.FUNCTION:
		return fmt.Sprintf("function L%d %q", op.Arg, op.Str)
	case asm.CLOSURE:
		return fmt.Sprintf("closure L%d", op.Arg)
	case asm.INTEGER:
		return fmt.Sprintf("integer %d", op.I64)
	case asm.FLOAT:
		return fmt.Sprintf("float %s", strconv.FormatFloat(op.F64, 'g', -1, 64))
	case asm.BOOL:
		return fmt.Sprintf("bool %t", op.Bool)
	case asm.STRING:
		return fmt.Sprintf("string %q", op.Str)
	case asm.CHAR:
		return fmt.Sprintf("char %q", string(op.Char))
	case asm.NEWLIST, asm.LIST, asm.ALLOCGLOBALS, asm.ALLOCLOCALS, asm.GET, asm.STORE,
		asm.GETGLOBAL, asm.STOREGLOBAL, asm.STACKREF, asm.NATIVE:
		return fmt.Sprintf("%s %d", op.Code, op.Arg)
	case asm.OFFSET:
		return fmt.Sprintf("offset %d %d", op.Arg, op.Arg2)
	case asm.DCALL, asm.TCALL:
		return fmt.Sprintf("%s %d %q", op.Code, op.Arg, op.Str)
	case asm.RET:
		return fmt.Sprintf("ret %t", op.HasArg)
	case asm.PIN:
		return fmt.Sprintf("pin %s:%d:%d", op.Pos.File, op.Pos.Line, op.Pos.Column)
	default:
		return op.Code.String()
	}
}

// Dasm parses the output of Asm back into an Op slice. It is intentionally
// forgiving about whitespace but strict about the token grammar each
// instruction line uses; malformed input is reported with the offending
// line number, matching the teacher's disassembler error style.
func Dasm(text string) ([]asm.Op, error) {
	var ops []asm.Op
	labels := map[string]uint32{}
	nextLabel := uint32(0)

	labelID := func(name string) uint32 {
		if id, ok := labels[name]; ok {
			return id
		}
		id := nextLabel
		nextLabel++
		labels[name] = id
		return id
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := splitAsmLine(line)
		mnemonic := fields[0]

		switch {
		case strings.HasPrefix(mnemonic, "label"):
			name := strings.TrimSuffix(fields[1], ":")
			ops = append(ops, asm.Label(labelID(name)))
		case mnemonic == "jmp":
			ops = append(ops, asm.Jmp(labelID(fields[1])))
		case mnemonic == "bjmp":
			ops = append(ops, asm.Bjmp(labelID(fields[1])))
		case mnemonic == "jif":
			ops = append(ops, asm.JumpIfFalse(labelID(fields[1])))
		case mnemonic == "function":
			name, err := strconv.Unquote(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad function name: %w", lineNo, err)
			}
			ops = append(ops, asm.Function(labelID(fields[1]), name))
		case mnemonic == "closure":
			ops = append(ops, asm.Closure(labelID(fields[1])))
		case mnemonic == "integer":
			v, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad integer: %w", lineNo, err)
			}
			ops = append(ops, asm.Integer(v))
		case mnemonic == "float":
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad float: %w", lineNo, err)
			}
			ops = append(ops, asm.Float(v))
		case mnemonic == "bool":
			ops = append(ops, asm.Bool(fields[1] == "true"))
		case mnemonic == "string":
			v, err := strconv.Unquote(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad string: %w", lineNo, err)
			}
			ops = append(ops, asm.String(v))
		case mnemonic == "char":
			v, err := strconv.Unquote(fields[1])
			if err != nil || len([]rune(v)) != 1 {
				return nil, fmt.Errorf("line %d: bad char", lineNo)
			}
			ops = append(ops, asm.Char([]rune(v)[0]))
		case mnemonic == "none":
			ops = append(ops, asm.None())
		case mnemonic == "newlist" || mnemonic == "list":
			n, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad count: %w", lineNo, err)
			}
			if mnemonic == "newlist" {
				ops = append(ops, asm.NewListOp(uint32(n)))
			} else {
				ops = append(ops, asm.ListOp(uint32(n)))
			}
		case mnemonic == "allocglobals" || mnemonic == "alloclocals" || mnemonic == "get" ||
			mnemonic == "store" || mnemonic == "getglobal" || mnemonic == "storeglobal" ||
			mnemonic == "stackref" || mnemonic == "native":
			n, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad operand: %w", lineNo, err)
			}
			ops = append(ops, simpleArgOp(mnemonic, uint32(n)))
		case mnemonic == "offset":
			a, err1 := strconv.ParseUint(fields[1], 10, 32)
			l, err2 := strconv.ParseUint(fields[2], 10, 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad offset operands", lineNo)
			}
			ops = append(ops, asm.Offset(uint32(a), uint32(l)))
		case mnemonic == "dcall" || mnemonic == "tcall":
			slot, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad call slot: %w", lineNo, err)
			}
			name, err := strconv.Unquote(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad call name: %w", lineNo, err)
			}
			if mnemonic == "dcall" {
				ops = append(ops, asm.Dcall(uint32(slot), name))
			} else {
				ops = append(ops, asm.Tcall(uint32(slot), name))
			}
		case mnemonic == "pin":
			parts := strings.Split(strings.Join(fields[1:], " "), ":")
			n := len(parts)
			if n < 3 {
				return nil, fmt.Errorf("line %d: bad pin position", lineNo)
			}
			ln, err1 := strconv.Atoi(parts[n-2])
			col, err2 := strconv.Atoi(parts[n-1])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad pin position", lineNo)
			}
			ops = append(ops, asm.Pin(asm.Position{File: strings.Join(parts[:n-2], ":"), Line: ln, Column: col}))
		case mnemonic == "ret":
			ops = append(ops, asm.Ret(fields[1] == "true"))
		case mnemonic == "call":
			ops = append(ops, asm.Call())
		case mnemonic == "lin":
			ops = append(ops, asm.Lin())
		default:
			if op, ok := simpleMnemonic(mnemonic); ok {
				ops = append(ops, op)
				continue
			}
			return nil, fmt.Errorf("line %d: unrecognized mnemonic %q", lineNo, mnemonic)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func simpleArgOp(mnemonic string, n uint32) asm.Op {
	switch mnemonic {
	case "allocglobals":
		return asm.AllocGlobals(n)
	case "alloclocals":
		return asm.AllocLocals(n)
	case "get":
		return asm.Get(n)
	case "store":
		return asm.Store(n)
	case "getglobal":
		return asm.GetGlobal(n)
	case "storeglobal":
		return asm.StoreGlobal(n)
	case "stackref":
		return asm.StackRef(n)
	case "native":
		return asm.Native(n)
	}
	panic("unreachable")
}

var simpleCodes = map[string]asm.Code{
	"iadd": asm.INT_ADD, "isub": asm.INT_SUB, "imul": asm.INT_MUL, "idiv": asm.INT_DIV, "imod": asm.INT_MOD,
	"fadd": asm.FLOAT_ADD, "fsub": asm.FLOAT_SUB, "fmul": asm.FLOAT_MUL, "fdiv": asm.FLOAT_DIV,
	"ilss": asm.ILSS, "igtr": asm.IGTR, "flss": asm.FLSS, "fgtr": asm.FGTR, "equ": asm.EQUALS,
	"and": asm.AND, "or": asm.OR, "not": asm.NOT, "neg": asm.NEG,
	"concat": asm.CONCAT, "dup": asm.DUP, "pop": asm.POP, "assign": asm.ASSIGN,
	"free": asm.FREE, "clone": asm.CLONE, "issome": asm.ISSOME, "unwrap": asm.UNWRAP,
	"print": asm.PRINT,
}

func simpleMnemonic(mnemonic string) (asm.Op, bool) {
	if c, ok := simpleCodes[mnemonic]; ok {
		return asm.Simple(c), true
	}
	return asm.Op{}, false
}

// splitAsmLine splits on whitespace but keeps quoted strings intact, so a
// function name or string literal containing spaces survives a round trip.
func splitAsmLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ' ' && !inQuotes:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}
