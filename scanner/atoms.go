package scanner

// prefilter reports whether every required atom occurs in corpus. A false
// result proves the regex cannot match.
func (r *Rule) prefilter(corpus []byte) bool {
	if r.matcher == nil {
		return true
	}
	found := make([]bool, len(r.atoms))
	remaining := len(r.atoms)

	// No atom contains another, so resuming one byte after each hit still
	// sees every atom that starts later.
	for at := 0; remaining > 0 && at < len(corpus); {
		m := r.matcher.Find(corpus, at)
		if m == nil {
			break
		}
		if i, ok := r.atomIdx[string(corpus[m.Start:m.End])]; ok && !found[i] {
			found[i] = true
			remaining--
		}
		at = m.Start + 1
	}
	return remaining == 0
}
