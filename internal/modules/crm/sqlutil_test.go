package crm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeEncoding(t *testing.T) {
	instant := time.Date(2026, 10, 16, 9, 30, 15, 500, time.FixedZone("CEST", 2*3600))

	assert.True(t, parseTime(formatTime(instant)).Equal(instant))
	assert.Equal(t, "", formatTime(time.Time{}))
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
}

func TestTagEncoding(t *testing.T) {
	assert.Equal(t, "[]", encodeTags(nil))
	assert.Equal(t, []string{"a", "b"}, decodeTags(encodeTags([]string{"a", "b"})))
	assert.Nil(t, decodeTags("[]"))
	assert.Nil(t, decodeTags("not json"))
}
