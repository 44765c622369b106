package game

// RemainingPips returns each player's leftover pip total at round end.
func RemainingPips(g *Game) map[string]int {
	pips := make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		pips[p.ID] = p.HandTotal()
	}
	return pips
}

// RoundPoints computes free-for-all scoring for a finished round. A domino
// winner takes the sum of the opponents' remaining pips; a blocked winner
// takes that sum minus their own pips, clamped at zero.
func RoundPoints(g *Game) (winnerID string, points int, remainingPips map[string]int) {
	remainingPips = RemainingPips(g)
	winnerID = g.WinnerID
	if winnerID == "" {
		return "", 0, remainingPips
	}

	opponents := 0
	for pid, pips := range remainingPips {
		if pid != winnerID {
			opponents += pips
		}
	}

	winner := g.Player(winnerID)
	if winner != nil && len(winner.Hand) == 0 {
		points = opponents
	} else {
		points = opponents - remainingPips[winnerID]
		if points < 0 {
			points = 0
		}
	}
	return winnerID, points, remainingPips
}

// TeamRoundPoints computes 2-vs-2 scoring for a finished round. The winning
// team is the individual winner's team; a domino takes the opposing team's
// summed pips, a block takes the positive difference.
func TeamRoundPoints(g *Game, teamA, teamB []string) (winningTeam string, points int, remainingPips map[string]int) {
	remainingPips = RemainingPips(g)

	teamPips := func(ids []string) int {
		total := 0
		for _, id := range ids {
			total += remainingPips[id]
		}
		return total
	}
	aPips, bPips := teamPips(teamA), teamPips(teamB)

	winnerID := g.WinnerID
	if winnerID == "" {
		return "", 0, remainingPips
	}

	winner := g.Player(winnerID)
	dominoed := winner != nil && len(winner.Hand) == 0

	onTeamA := false
	for _, id := range teamA {
		if id == winnerID {
			onTeamA = true
			break
		}
	}

	if onTeamA {
		winningTeam = TeamA
		if dominoed {
			points = bPips
		} else {
			points = max(0, bPips-aPips)
		}
	} else {
		winningTeam = TeamB
		if dominoed {
			points = aPips
		} else {
			points = max(0, aPips-bPips)
		}
	}
	return winningTeam, points, remainingPips
}
