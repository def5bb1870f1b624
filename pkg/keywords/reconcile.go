package keywords

// Reconcile merges a fresh server list into the previous in-memory list.
//
// Unconfirmed rows of previous survive unless the server now reports them,
// matched by ID or by keyword Key. Every other row of previous is replaced by
// the server list, so a row the server stopped listing is gone even if it
// never got a position. Server rows follow the surviving unconfirmed rows
// and always win an ID collision. The result never contains two rows with
// the same ID.
func Reconcile(previous, server []Row) []Row {
	serverIDs := make(map[string]struct{}, len(server))
	serverKeys := make(map[string]struct{}, len(server))
	for _, r := range server {
		serverIDs[r.ID] = struct{}{}
		if k := Key(r.Keyword); k != "" {
			serverKeys[k] = struct{}{}
		}
	}

	out := make([]Row, 0, len(server)+len(previous))
	seen := make(map[string]struct{}, len(server)+len(previous))

	for _, r := range previous {
		if !r.Unconfirmed {
			continue
		}
		if _, ok := serverIDs[r.ID]; ok {
			continue
		}
		if _, ok := serverKeys[Key(r.Keyword)]; ok {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}

	for _, r := range server {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Remove returns rows without the row identified by id. The input is not
// modified.
func Remove(rows []Row, id string) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the row with the given id.
func Find(rows []Row, id string) (Row, bool) {
	for _, r := range rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}
