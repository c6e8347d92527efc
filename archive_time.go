package zipstream

import (
	"time"

	"github.com/pkg/errors"
)

// Packed MS-DOS date-time bounds, 1980-01-01T00:00:00
// through 2107-12-31T23:59:58.
const (
	MinDOSTime uint32 = 0x00210000
	MaxDOSTime uint32 = 0xff9fbf7d
)

// Timestamp is the modification time of an entry, either a calendar
// time or an already packed MS-DOS date-time. The zero value means
// "now" at the time the entry is added.
type Timestamp struct {
	t      time.Time
	dos    uint32
	packed bool
}

// Time returns a calendar timestamp.
func Time(t time.Time) Timestamp {
	return Timestamp{t: t}
}

// DOSTime returns a precomputed packed timestamp.
func DOSTime(v uint32) Timestamp {
	return Timestamp{dos: v, packed: true}
}

// IsZero returns true if no time was given.
func (ts Timestamp) IsZero() bool {
	return !ts.packed && ts.t.IsZero()
}

// pack resolves the timestamp to its packed form.
func (ts Timestamp) pack() (uint32, error) {
	if !ts.packed {
		return PackDOSTime(ts.t)
	}

	if ts.dos < MinDOSTime || ts.dos > MaxDOSTime {
		return 0, errors.Wrapf(ErrRange, "dos time %#08x", ts.dos)
	}

	return ts.dos, nil
}

// PackDOSTime converts t, in its own location, to the packed
// MS-DOS date-time. The resolution is 2s.
func PackDOSTime(t time.Time) (uint32, error) {
	loc := t.Location()
	if t.Before(time.Date(1980, 1, 1, 0, 0, 0, 0, loc)) || t.After(time.Date(2107, 12, 31, 23, 59, 58, 0, loc)) {
		return 0, errors.Wrapf(ErrRange, "time %s", t.Format(time.RFC3339Nano))
	}

	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	v := uint64(year-1980)*(1<<25) +
		uint64(month)*(1<<21) +
		uint64(day)*(1<<16) +
		uint64(hour)*(1<<11) +
		uint64(minute)*(1<<5) +
		uint64(sec/2)

	return uint32(v), nil
}

// UnpackDOSTime converts a packed MS-DOS date-time to a UTC time.
func UnpackDOSTime(v uint32) time.Time {
	date, clock := v>>16, v&0xffff
	return time.Date(
		int(date>>9+1980),
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(clock>>11),
		int(clock>>5&0x3f),
		int(clock&0x1f*2),
		0,
		time.UTC,
	)
}
