package loader

import (
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/consteval/internal/ir"
)

// parseType resolves a type spelling: a builtin, an ordering category or a
// class name, followed by any number of "*" and "[N]" suffixes. "T C::*"
// is a pointer to a data member of class C.
func (c *compiler) parseType(s string) (*ir.Type, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "std::"))
	if sp := strings.LastIndex(s, " "); sp > 0 && strings.HasSuffix(s, "::*") {
		cls := c.classes[strings.TrimSuffix(s[sp+1:], "::*")]
		elem, ok := c.parseType(s[:sp])
		if cls == nil || !ok {
			return nil, false
		}
		return ir.MemberPointerTo(cls, elem), true
	}
	switch {
	case strings.HasSuffix(s, "*"):
		elem, ok := c.parseType(s[:len(s)-1])
		if !ok {
			return nil, false
		}
		return ir.PointerTo(elem), true
	case strings.HasSuffix(s, "]"):
		open := strings.LastIndex(s, "[")
		if open < 0 {
			return nil, false
		}
		n, err := strconv.ParseInt(s[open+1:len(s)-1], 10, 64)
		if err != nil || n < 0 {
			return nil, false
		}
		elem, ok := c.parseType(s[:open])
		if !ok {
			return nil, false
		}
		return ir.ArrayOf(elem, n), true
	}
	if t, ok := ir.Builtin(s); ok {
		return t, true
	}
	if cls := c.classes[s]; cls != nil {
		return cls.Type(), true
	}
	return nil, false
}

// typeField resolves the type named by field key of v. Missing types are
// nil without error unless required.
func (c *compiler) typeField(v cue.Value, key string, required bool) (*ir.Type, error) {
	f, ok := lookup(v, key)
	if !ok {
		if required {
			return nil, errorf(v, key, "%s is required", key)
		}
		return nil, nil
	}
	s, err := f.String()
	if err != nil {
		return nil, errorf(f, key, "type must be a string")
	}
	t, ok := c.parseType(s)
	if !ok {
		return nil, errorf(f, key, "unknown type %q", s)
	}
	return t, nil
}
