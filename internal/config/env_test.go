package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("INTAKE_TEST_STR", "value")
	t.Setenv("INTAKE_TEST_INT", "42")
	t.Setenv("INTAKE_TEST_DUR", "250ms")
	t.Setenv("INTAKE_TEST_FLOAT", "0.5")
	t.Setenv("INTAKE_TEST_BOOL", "No")
	t.Setenv("INTAKE_TEST_BAD", "x")

	assert.Equal(t, "value", ParseString("INTAKE_TEST_STR", "def"))
	assert.Equal(t, "def", ParseString("INTAKE_TEST_UNSET", "def"))
	assert.Equal(t, 42, ParseInt("INTAKE_TEST_INT", 1))
	assert.Equal(t, int64(42), ParseInt64("INTAKE_TEST_INT", 1))
	assert.Equal(t, 7, ParseInt("INTAKE_TEST_BAD", 7))
	assert.Equal(t, 250*time.Millisecond, ParseDuration("INTAKE_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, ParseDuration("INTAKE_TEST_BAD", time.Second))
	assert.InDelta(t, 0.5, ParseFloat("INTAKE_TEST_FLOAT", 1), 1e-9)
	assert.False(t, ParseBool("INTAKE_TEST_BOOL", true))
	assert.True(t, ParseBool("INTAKE_TEST_BAD", true))
}

func TestEmptyEnvMeansDefault(t *testing.T) {
	t.Setenv("INTAKE_TEST_EMPTY", "")
	assert.Equal(t, 3, ParseInt("INTAKE_TEST_EMPTY", 3))
}
