package activity

// Logs bundles the three activity collections of an analysis run.
type Logs struct {
	Logon  []LogonRecord
	Device []DeviceRecord
	HTTP   []HTTPRecord
}

// Len returns the total number of records.
func (l Logs) Len() int {
	return len(l.Logon) + len(l.Device) + len(l.HTTP)
}

// Empty reports whether no collection holds a record.
func (l Logs) Empty() bool {
	return l.Len() == 0
}

// Days returns every day present in any of the three collections.
func (l Logs) Days() DaySet {
	days := make(DaySet)
	for _, r := range l.Logon {
		days.Add(r.Day)
	}
	for _, r := range l.Device {
		days.Add(r.Day)
	}
	for _, r := range l.HTTP {
		days.Add(r.Day)
	}
	return days
}

// OnDay returns the records of all three collections dated d.
func (l Logs) OnDay(d Day) Logs {
	var out Logs
	for _, r := range l.Logon {
		if r.Day == d {
			out.Logon = append(out.Logon, r)
		}
	}
	for _, r := range l.Device {
		if r.Day == d {
			out.Device = append(out.Device, r)
		}
	}
	for _, r := range l.HTTP {
		if r.Day == d {
			out.HTTP = append(out.HTTP, r)
		}
	}
	return out
}

// Records returns all records as the tagged variant, logon first, then
// device, then HTTP, each in collection order.
func (l Logs) Records() []Record {
	out := make([]Record, 0, l.Len())
	for _, r := range l.Logon {
		out = append(out, r)
	}
	for _, r := range l.Device {
		out = append(out, r)
	}
	for _, r := range l.HTTP {
		out = append(out, r)
	}
	return out
}
