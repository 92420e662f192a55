package suggest

// DedupeTopLevel leaves each target as the best suggestion of at most one
// phrase. Phrases sharing a top target are ranked by that suggestion's total
// score, earlier phrases winning ties, and the losers fall back to their next
// suggestion. Passes repeat until nothing changes or the pass cap is hit.
func (e *Engine) DedupeTopLevel(phrases []*Phrase) []*Phrase {
	phrases = dropEmpty(phrases)
	for pass := 1; ; pass++ {
		var order []string
		groups := make(map[string][]int)
		for i, p := range phrases {
			key := p.TopKey()
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], i)
		}

		removed := false
		for _, key := range order {
			idx := groups[key]
			if len(idx) < 2 {
				continue
			}
			best := idx[0]
			for _, i := range idx[1:] {
				if phrases[i].Top().TotalScore > phrases[best].Top().TotalScore {
					best = i
				}
			}
			for _, i := range idx {
				if i == best {
					continue
				}
				phrases[i].Suggestions = phrases[i].Suggestions[1:]
				removed = true
			}
		}
		phrases = dropEmpty(phrases)

		if !removed {
			return phrases
		}
		if pass >= e.cfg.MaxDedupePasses {
			e.logger.Warn("top-level dedupe did not settle, keeping current state", "passes", pass, "phrases", len(phrases))
			return phrases
		}
	}
}

// ApplyTopLevel records each phrase's top target in used. For outbound and
// external runs a top target that is already used is removed, or dimmed in
// undeletable mode. Inbound runs only record. Each phrase is then capped to
// the configured number of suggestions, or dimmed past it in undeletable
// mode.
func (e *Engine) ApplyTopLevel(phrases []*Phrase, used map[string]struct{}, inbound bool) []*Phrase {
	out := phrases[:0]
	for _, p := range phrases {
		if len(p.Suggestions) == 0 {
			continue
		}
		key := p.TopKey()
		if _, seen := used[key]; inbound || !seen {
			used[key] = struct{}{}
		} else if e.cfg.Undeletable {
			p.Suggestions[0].Opacity = 0.5
		} else {
			p.Suggestions = p.Suggestions[1:]
		}
		if len(p.Suggestions) == 0 {
			continue
		}

		limit := e.cfg.MaxSuggestionsPerPhrase
		switch {
		case e.cfg.Undeletable:
			for i := limit; i < len(p.Suggestions); i++ {
				p.Suggestions[i].Opacity = 0.5
			}
		case !e.cfg.All && len(p.Suggestions) > limit:
			p.Suggestions = p.Suggestions[:limit]
		}
		out = append(out, p)
	}
	return out
}

// PruneWeak drops phrases whose best suggestion has a low post score once
// there are more than enough phrases. When fewer than the floor are strong,
// the earliest weak phrases are kept to make up the difference.
func (e *Engine) PruneWeak(phrases []*Phrase) []*Phrase {
	floor := e.cfg.WeakPhraseFloor
	if len(phrases) <= floor {
		return phrases
	}
	phrases = dropEmpty(phrases)

	strong := 0
	for _, p := range phrases {
		if p.Top().PostScore >= e.cfg.WeakPostScore {
			strong++
		}
	}

	out := phrases[:0]
	for _, p := range phrases {
		if p.Top().PostScore >= e.cfg.WeakPostScore {
			out = append(out, p)
			continue
		}
		if strong < floor {
			strong++
			out = append(out, p)
		}
	}
	return out
}
