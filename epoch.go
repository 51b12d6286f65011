package vdif

import (
	"time"

	"github.com/pkg/errors"
)

// Reference epochs count half-years since 2000-01-01T00:00:00 UTC: even
// indices land on January 1st, odd indices on July 1st.

// EpochTime returns the UTC instant a reference epoch index refers to.
func EpochTime(epoch uint8) time.Time {
	year := 2000 + int(epoch)/2
	month := time.January
	if epoch%2 == 1 {
		month = time.July
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// TimeToEpoch splits an absolute instant into a reference epoch index and
// seconds past that epoch. Instants before 2000 or beyond the 6-bit epoch
// range cannot be represented.
func TimeToEpoch(t time.Time) (epoch uint8, seconds uint32, err error) {
	t = t.UTC()
	idx := (t.Year()-2000)*2
	if t.Month() >= time.July {
		idx++
	}
	if idx < 0 || idx > 0x3f {
		return 0, 0, errors.WithStack(ErrFieldOverflow)
	}
	sec := t.Unix() - EpochTime(uint8(idx)).Unix()
	if sec < 0 || sec > maskSeconds {
		return 0, 0, errors.WithStack(ErrFieldOverflow)
	}
	return uint8(idx), uint32(sec), nil
}

// Time combines the reference epoch and seconds fields into an absolute
// UTC instant, truncated to the second.
func (h Header) Time() time.Time {
	return EpochTime(h.RefEpoch()).Add(time.Duration(h.Seconds()) * time.Second)
}

// SetTime sets the reference epoch and seconds fields from an absolute
// instant.
func (h *Header) SetTime(t time.Time) error {
	epoch, sec, err := TimeToEpoch(t)
	if err != nil {
		return err
	}
	if err := h.SetRefEpoch(epoch); err != nil {
		return err
	}
	return h.SetSeconds(sec)
}
