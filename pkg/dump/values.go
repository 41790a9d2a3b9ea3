package dump

import "strings"

type state int

const (
	stateOutside  state = iota // between tuples
	stateInTuple               // inside (...), outside a quoted value
	stateInQuoted              // inside '...'
)

// ParseValues splits the tuple list of one insert statement into rows.
// "," and ")" are structural only outside quotes. Spaces after a separating comma are skipped.
// A tuple still open at end of input is dropped; the completed ones are returned.
func ParseValues(s string) []Row {
	var (
		rows    []Row
		fields  Row
		cur     strings.Builder
		st      = stateOutside
		escaped bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if st != stateOutside && escaped {
			cur.WriteByte(c)
			escaped = false
			continue
		}

		switch st {
		case stateOutside:
			if c == '(' {
				st = stateInTuple
				fields = nil
				cur.Reset()
			}

		case stateInTuple:
			switch c {
			case '\\':
				escaped = true
			case '\'':
				st = stateInQuoted
			case ',':
				fields = append(fields, cur.String())
				cur.Reset()
				for i+1 < len(s) && s[i+1] == ' ' {
					i++
				}
			case ')':
				fields = append(fields, cur.String())
				rows = append(rows, fields)
				fields = nil
				cur.Reset()
				st = stateOutside
			default:
				cur.WriteByte(c)
			}

		case stateInQuoted:
			switch c {
			case '\\':
				escaped = true
			case '\'':
				if i+1 < len(s) && s[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
					continue
				}
				st = stateInTuple
			default:
				cur.WriteByte(c)
			}
		}
	}

	return rows
}
