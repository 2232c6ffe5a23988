// monotime.go - Monotonic clock.
// Copyright (C) 2025  Alen Jiji.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package monotime implements a monotonic clock.
package monotime

import (
	"time"
)

var monoBase time.Time

// Now returns the current time as measured by a monotonic clock source.  The
// value is totally unrelated to civil time, and should only be used for
// measuring relative time intervals.  Everything below the pipeline assembly
// layer keys off values returned by this routine, so that test harnesses can
// substitute simulated timestamps.
func Now() time.Duration {
	// The time package carries a monotonic component since Go 1.9, so the
	// delta-T from package initialization is monotonic.
	return time.Since(monoBase)
}

func init() {
	monoBase = time.Now()
}
