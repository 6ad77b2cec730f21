package sparql

import (
	"strconv"
	"strings"
)

// String renders this query as SPARQL text.
func (q *Query) String() string {
	var b strings.Builder
	q.write(&b)
	return b.String()
}

func (q *Query) write(b *strings.Builder) {
	switch q.Form {
	case Describe:
		b.WriteString("DESCRIBE")
		for _, n := range q.Describe {
			b.WriteString(" ")
			n.write(b)
		}
		b.WriteString(" WHERE ")
	case Ask:
		b.WriteString("ASK ")
	case Select:
		b.WriteString("SELECT ")
		if q.Distinct {
			b.WriteString("DISTINCT ")
		}
		switch {
		case q.Count != nil:
			b.WriteString("(COUNT(")
			if q.Count.Distinct {
				b.WriteString("DISTINCT ")
			}
			b.WriteString("?" + q.Count.Var + ") AS ?" + q.Count.As + ")")
		case len(q.Vars) == 0:
			b.WriteString("*")
		default:
			for i, v := range q.Vars {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString("?" + v)
			}
		}
		b.WriteString(" WHERE ")
	}

	q.Where.write(b)

	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ?" + q.OrderBy)
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
	}
}

// String renders this group as SPARQL text.
func (g Group) String() string {
	var b strings.Builder
	g.write(&b)
	return b.String()
}

func (g Group) write(b *strings.Builder) {
	b.WriteString("{")
	if g.Select != nil {
		b.WriteString(" { ")
		g.Select.write(b)
		b.WriteString(" }")
	}
	for _, t := range g.Triples {
		b.WriteString(" ")
		t.write(b)
	}
	for _, o := range g.Optional {
		b.WriteString(" OPTIONAL ")
		o.write(b)
	}
	for _, ne := range g.NotExists {
		b.WriteString(" FILTER NOT EXISTS ")
		ne.write(b)
	}
	for _, f := range g.Filters {
		b.WriteString(" FILTER ")
		if _, ok := f.(Compare); ok {
			b.WriteString("(")
			f.write(b)
			b.WriteString(")")
			continue
		}
		if _, ok := f.(Not); ok {
			b.WriteString("(")
			f.write(b)
			b.WriteString(")")
			continue
		}
		f.write(b)
	}
	b.WriteString(" }")
}

func (t Triple) write(b *strings.Builder) {
	t.S.write(b)
	b.WriteString(" ")
	t.P.write(b)
	if t.Plus {
		b.WriteString("+")
	}
	b.WriteString(" ")
	t.O.write(b)
	b.WriteString(" .")
}

// String renders this triple pattern as SPARQL text.
func (t Triple) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}
