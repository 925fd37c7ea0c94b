package graph

// Profile is a periodic piecewise-linear travel-time function. Breakpoints
// are sorted by departure time; the first breakpoint is at 0 and the last at
// DayMs with the same value, so evaluation wraps cleanly across midnight.
type Profile struct {
	Departure  []Timestamp
	TravelTime []Weight
}

// ConstantProfile returns a profile with the same travel time all day.
func ConstantProfile(tt Weight) Profile {
	return Profile{
		Departure:  []Timestamp{0, DayMs},
		TravelTime: []Weight{tt, tt},
	}
}

// Eval returns the travel time for a departure at time t, interpolating
// linearly between breakpoints. Times past DayMs wrap around.
func (p *Profile) Eval(t Timestamp) Weight {
	t %= DayMs

	// Binary search for the first breakpoint > t.
	lo, hi := 0, len(p.Departure)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.Departure[mid] <= t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return p.TravelTime[0]
	}
	if lo == len(p.Departure) {
		return p.TravelTime[len(p.TravelTime)-1]
	}

	t0, t1 := p.Departure[lo-1], p.Departure[lo]
	v0, v1 := p.TravelTime[lo-1], p.TravelTime[lo]
	if t1 == t0 || v0 == v1 {
		return v0
	}

	frac := float64(t-t0) / float64(t1-t0)
	return Weight(float64(v0) + frac*(float64(v1)-float64(v0)) + 0.5)
}

// Min returns the smallest breakpoint value.
func (p *Profile) Min() Weight {
	minVal := Infinity
	for _, v := range p.TravelTime {
		if v < minVal {
			minVal = v
		}
	}
	return minVal
}

// Max returns the largest breakpoint value.
func (p *Profile) Max() Weight {
	var maxVal Weight
	for _, v := range p.TravelTime {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// MinInRange returns the smallest travel time for departures within [from, to)
// (both within one day). Used to extract interval metrics for potentials.
// Linear segments attain their extrema at endpoints, so scanning breakpoints
// inside the window plus the interpolated values at its ends is exact.
func (p *Profile) MinInRange(from, to Timestamp) Weight {
	minVal := p.Eval(from)
	if v := p.Eval(to); v < minVal {
		minVal = v
	}
	for i, d := range p.Departure {
		if d >= from && d < to && p.TravelTime[i] < minVal {
			minVal = p.TravelTime[i]
		}
	}
	return minVal
}
