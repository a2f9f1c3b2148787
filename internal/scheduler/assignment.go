package scheduler

// StaffLoad is a staff member together with their open report count.
type StaffLoad struct {
	StaffID     uint64
	OpenReports int
}

// LeastLoaded picks the staff member with the fewest open reports.  Ties
// go to whoever appears first in staff, so callers control the order.  An
// empty list yields ok == false: the report stays unassigned.
func LeastLoaded(staff []StaffLoad) (staffID uint64, ok bool) {
	best := -1
	for i, s := range staff {
		if best < 0 || s.OpenReports < staff[best].OpenReports {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return staff[best].StaffID, true
}
