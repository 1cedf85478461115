package scoring

// CalculateTeamPoints awards placement points for a successful team lift:
// tp1/tp2/tp3 for the podium, then one fewer per rank below third, floored
// at zero. Non-members and failed lifts score nothing.
func CalculateTeamPoints(rank int, liftValue float64, isTeamMember bool, points ...int) int {
	tp1, tp2, tp3 := 28, 25, 23
	if len(points) > 0 {
		tp1 = points[0]
	}
	if len(points) > 1 {
		tp2 = points[1]
	}
	if len(points) > 2 {
		tp3 = points[2]
	}

	if !isTeamMember || liftValue <= 0 || rank <= 0 {
		return 0
	}
	switch rank {
	case 1:
		return tp1
	case 2:
		return tp2
	case 3:
		return tp3
	default:
		if p := tp3 - (rank - 3); p > 0 {
			return p
		}
		return 0
	}
}
