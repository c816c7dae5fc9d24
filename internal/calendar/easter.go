package calendar

import "time"

// Easter returns the month and day of Easter Sunday in the Gregorian calendar
// using Gauss's algorithm. Only integer arithmetic is used; divisions are
// floored so that proleptic years before 1 AD still resolve.
func Easter(year int) (time.Month, int) {
	g := floorMod(year, 19)
	c := floorDiv(year, 100)
	h := floorMod(c-floorDiv(c, 4)-floorDiv(8*c+13, 25)+19*g+15, 30)
	i := h - floorDiv(h, 28)*(1-floorDiv(29, h+1)*floorDiv(21-g, 11))
	j := floorMod(year+floorDiv(year, 4)+i+2-c+floorDiv(c, 4), 7)
	l := i - j
	month := 3 + floorDiv(l+40, 44)
	day := l + 28 - 31*floorDiv(month, 4)
	return time.Month(month), day
}

// EasterSunday returns midnight of Easter Sunday in loc.
func EasterSunday(year int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	m, d := Easter(year)
	return time.Date(year, m, d, 0, 0, 0, 0, loc)
}

// EasterMonday returns midnight of the Monday after Easter Sunday in loc.
func EasterMonday(year int, loc *time.Location) time.Time {
	return EasterSunday(year, loc).AddDate(0, 0, 1)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
