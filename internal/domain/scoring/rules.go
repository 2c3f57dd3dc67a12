package scoring

// Rules stores the per-event point weights used for the leaderboard.
// Win/draw/lose default to zero: match outcomes are tracked for display
// but deliberately carry no points.
type Rules struct {
	Attendance int
	Goal       int
	Assist     int
	CleanSheet int
	Win        int
	Draw       int
	Lose       int
	MOM        int
}

func DefaultRules() Rules {
	return Rules{
		Attendance: 1,
		Goal:       1,
		Assist:     1,
		CleanSheet: 1,
		Win:        0,
		Draw:       0,
		Lose:       0,
		MOM:        1,
	}
}

// TotalPoint computes a player's total for one session. Attendance is a
// binary contribution: any positive count earns the attendance weight once.
// The result depends only on the arguments, callers recompute after every
// mutation instead of caching.
func TotalPoint(rules Rules, attendance, goals, assists, cleanSheet, mom int) int {
	total := 0
	if attendance > 0 {
		total += rules.Attendance
	}
	total += goals * rules.Goal
	total += assists * rules.Assist
	total += cleanSheet * rules.CleanSheet
	total += mom * rules.MOM
	return total
}
