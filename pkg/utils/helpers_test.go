package utils

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 42, ParseValue(" 42 "))
	assert.Equal(t, 1.5, ParseValue("1.5"))
	assert.Equal(t, "north", ParseValue("north"))

	for _, missing := range []string{"", "  ", "NaN", "nan", "n/a", "null", "inf", "-Infinity"} {
		assert.Nil(t, ParseValue(missing), missing)
	}
}

func TestParseNumber(t *testing.T) {
	v, err := ParseNumber("12.5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	for _, missing := range []string{"", " ", "NaN", "null", "N/A"} {
		v, err := ParseNumber(missing)
		require.NoError(t, err, missing)
		assert.True(t, math.IsNaN(v), missing)
	}

	_, err = ParseNumber("twelve")
	assert.Error(t, err)
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, "customer_id", CleanHeader(` "customer_id" `))
	assert.Equal(t, "revenue", CleanHeader("\ufeffrevenue"))
}
