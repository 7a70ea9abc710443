package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeOfDayAdd(t *testing.T) {
	tod := TimeOfDay{Hour: 7, Minute: 30}
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, tod.Add(time.Hour))
	assert.Equal(t, TimeOfDay{Hour: 6, Minute: 30}, tod.Add(-time.Hour))

	// Wrapping forward past midnight.
	tod = TimeOfDay{Hour: 23, Minute: 30}
	assert.Equal(t, TimeOfDay{Hour: 0, Minute: 30}, tod.Add(time.Hour))

	// Wrapping backward past midnight.
	tod = TimeOfDay{Hour: 0, Minute: 15}
	assert.Equal(t, TimeOfDay{Hour: 23, Minute: 15}, tod.Add(-time.Hour))

	// Zero duration is the identity.
	tod = TimeOfDay{Hour: 12, Second: 1}
	assert.Equal(t, tod, tod.Add(0))
}

func TestTimeOfDayCronExpr(t *testing.T) {
	assert.Equal(t, "0 30 7 * * *", TimeOfDay{Hour: 7, Minute: 30}.CronExpr())
	assert.Equal(t, "59 59 23 * * *", TimeOfDay{Hour: 23, Minute: 59, Second: 59}.CronExpr())
	assert.Equal(t, "0 0 0 * * *", TimeOfDay{}.CronExpr())
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "07:30:00", TimeOfDay{Hour: 7, Minute: 30}.String())
	assert.Equal(t, "00:00:05", TimeOfDay{Second: 5}.String())
}

func TestTimeOfDaySeconds(t *testing.T) {
	assert.Equal(t, 0, TimeOfDay{}.Seconds())
	assert.Equal(t, 86399, TimeOfDay{Hour: 23, Minute: 59, Second: 59}.Seconds())
}
