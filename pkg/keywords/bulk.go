package keywords

// BulkInput is the result of splitting pasted keyword text.
type BulkInput struct {
	// ToSubmit holds the keywords to create, in first-seen order, with the
	// spelling of their first occurrence.
	ToSubmit []string

	// DuplicateCount is the number of raw tokens not retained in ToSubmit.
	// It is always Repeated + AlreadyTracked.
	DuplicateCount int

	// Repeated counts tokens dropped because the same keyword appeared
	// earlier in the batch.
	Repeated int
	// AlreadyTracked counts distinct batch keywords dropped because an
	// existing row tracks them.
	AlreadyTracked int
}

func isSeparator(r rune) bool {
	switch r {
	case '\r', '\n', ',', '\t':
		return true
	}
	return false
}

// Tokenize splits raw on runs of CR, LF, comma and tab, collapses whitespace
// inside each token and drops empty ones.
func Tokenize(raw string) []string {
	var tokens []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if t := CollapseSpaces(raw[start:end]); t != "" {
			tokens = append(tokens, t)
		}
		start = -1
	}
	for i, r := range raw {
		if isSeparator(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(raw))
	return tokens
}

// SplitInput parses bulk keyword input and separates what should be created
// from what is a repeat within the batch or already tracked by existing.
func SplitInput(raw string, existing []Row) BulkInput {
	tracked := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		tracked[Key(r.Keyword)] = struct{}{}
	}

	tokens := Tokenize(raw)
	res := BulkInput{ToSubmit: []string{}}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		k := Key(t)
		if _, ok := seen[k]; ok {
			res.Repeated++
			continue
		}
		seen[k] = struct{}{}
		if _, ok := tracked[k]; ok {
			res.AlreadyTracked++
			continue
		}
		res.ToSubmit = append(res.ToSubmit, t)
	}
	res.DuplicateCount = len(tokens) - len(res.ToSubmit)
	return res
}
