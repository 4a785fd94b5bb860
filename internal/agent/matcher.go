package agent

// FindBestAgent selects the roster entry whose skills overlap the required
// skill set the most. Ties are broken by roster order (first best wins), so
// the result is deterministic for a given roster. Returns nil when no skills
// are required or no agent shares a single skill: the matcher never guesses.
func FindBestAgent(roster []*Agent, required []string) *Agent {
	if len(required) == 0 {
		return nil
	}

	var best *Agent
	bestScore := 0
	for _, a := range roster {
		score := matchScore(a, required)
		if score > bestScore {
			best = a
			bestScore = score
		}
	}
	return best
}

func matchScore(a *Agent, required []string) int {
	score := 0
	for _, skill := range required {
		if a.HasSkill(skill) {
			score++
		}
	}
	return score
}
