package leads

// Option is one selectable bracket: Key is the callback key, Label is stored on the lead.
type Option struct {
	Key   string
	Label string
}

// Areas are the floor-space brackets offered in the first step.
var Areas = []Option{
	{Key: "area_500", Label: "до 500 м²"},
	{Key: "area_1000", Label: "500–1 000 м²"},
	{Key: "area_3000", Label: "1 000–3 000 м²"},
	{Key: "area_5000", Label: "более 3 000 м²"},
}

// Terms are the lease durations offered in the second step.
var Terms = []Option{
	{Key: "term_6", Label: "до 6 месяцев"},
	{Key: "term_12", Label: "6–12 месяцев"},
	{Key: "term_36", Label: "1–3 года"},
	{Key: "term_60", Label: "более 3 лет"},
}

// AreaLabel resolves an area key.
func AreaLabel(key string) (string, bool) { return lookup(Areas, key) }

// TermLabel resolves a term key.
func TermLabel(key string) (string, bool) { return lookup(Terms, key) }

// Keys lists the callback keys of opts in order.
func Keys(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Key
	}
	return out
}

func lookup(opts []Option, key string) (string, bool) {
	for _, o := range opts {
		if o.Key == key {
			return o.Label, true
		}
	}
	return "", false
}
