package ir

import "tlog.app/go/errors"

// CheckSSA verifies the static-single-assignment invariant: every
// variable the block created is written by at most one opcode. It is
// used by tests, not by the hot translation path.
func CheckSSA(m *MicroBlock) error {
	writers := make(map[*Variable]int, len(m.vars))

	for i, op := range m.code {
		for _, v := range m.vars {
			if op.Writes(v) {
				if n, ok := writers[v]; ok {
					return errors.New("variable %s written twice: at %d and %d", v, n, i)
				}
				writers[v] = i
			}
		}
	}

	return nil
}
