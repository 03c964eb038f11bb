package pgstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSQLStateErr struct{ code string }

func (e *fakeSQLStateErr) Error() string    { return "pq: duplicate key value" }
func (e *fakeSQLStateErr) SQLState() string { return e.code }

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&fakeSQLStateErr{code: "23505"}))
	assert.False(t, isUniqueViolation(&fakeSQLStateErr{code: "42601"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
}

func TestNullLimit(t *testing.T) {
	assert.Nil(t, nullLimit(0))
	assert.Nil(t, nullLimit(-5))
	assert.Equal(t, 10, nullLimit(10))
}
