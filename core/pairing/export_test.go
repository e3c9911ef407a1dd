package pairing

import "time"

func SetNowFunc(f func() time.Time) (reset func()) {
	nowFunc = f
	return func() { nowFunc = time.Now }
}
