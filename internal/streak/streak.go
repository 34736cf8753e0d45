// Package streak tracks consecutive daily logins.
package streak

import "github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"

// State is the login bookkeeping stored on the profile.
type State struct {
	Current   int
	TotalDays int
	LastLogin string
}

// Result describes what a check did.
type Result struct {
	State
	Changed bool
	Reset   bool
}

// Check applies one login on today. Calling it again on the same day changes
// nothing. An unparseable last login date counts as a gap.
func Check(s State, today string) Result {
	if s.LastLogin == today {
		return Result{State: s}
	}

	next := s
	next.LastLogin = today
	next.TotalDays++

	res := Result{Changed: true}
	switch {
	case s.LastLogin == "":
		next.Current = 1
	default:
		days, err := ledger.DaysBetween(s.LastLogin, today)
		if err == nil && days == 1 {
			next.Current++
		} else {
			next.Current = 1
			res.Reset = s.Current > 0
		}
	}

	res.State = next
	return res
}
