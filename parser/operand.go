package parser

import "strings"

// NormalizeOperand rewrites AT&T memory operands into the bracketed form
// the pattern compiler emits for $deref, and strips the immediate marker:
//
//	$0x10               -> 0x10
//	(%rax)              -> [%rax]
//	-0x8(%rbp)          -> [%rbp+-0x8]
//	(%rax,%rbx,4)       -> [%rax+%rbx*4]
//	0x10(%rax,%rbx,4)   -> [%rax+%rbx*4+0x10]
//
// Intel operands pass through unchanged.
func NormalizeOperand(op string) string {
	if strings.HasPrefix(op, "$") {
		return op[1:]
	}
	open := strings.IndexByte(op, '(')
	if open < 0 || !strings.HasSuffix(op, ")") {
		return op
	}
	offset := op[:open]
	inner := op[open+1 : len(op)-1]

	parts := strings.Split(inner, ",")
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(parts[0])
	if len(parts) > 1 && parts[1] != "" {
		sb.WriteByte('+')
		sb.WriteString(parts[1])
		if len(parts) > 2 && parts[2] != "" {
			sb.WriteByte('*')
			sb.WriteString(parts[2])
		}
	}
	if offset != "" {
		sb.WriteByte('+')
		sb.WriteString(offset)
	}
	sb.WriteByte(']')
	return sb.String()
}
