package appointment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyExecError(t *testing.T) {
	overlap := classifyExecError("Create", &pq.Error{Code: "23P01"})
	assert.ErrorIs(t, overlap, ErrOverlap)

	serialization := classifyExecError("Create", &pq.Error{Code: "40001"})
	assert.ErrorIs(t, serialization, ErrSerialization)

	other := classifyExecError("Create", errors.New("connection reset"))
	assert.ErrorIs(t, other, ErrExecQuery)
}

func TestIsOverlap(t *testing.T) {
	assert.True(t, IsOverlap(fmt.Errorf("%w: insert", ErrOverlap)))
	assert.True(t, IsOverlap(fmt.Errorf("commit: %w", &pq.Error{Code: "23P01"})))
	assert.False(t, IsOverlap(fmt.Errorf("commit: %w", &pq.Error{Code: "40001"})))
	assert.False(t, IsOverlap(ErrSerialization))
	assert.False(t, IsOverlap(ErrAppointmentNotFound))
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(fmt.Errorf("%w: select", ErrSerialization)))
	assert.True(t, IsSerializationFailure(fmt.Errorf("commit: %w", &pq.Error{Code: "40001"})))
	assert.False(t, IsSerializationFailure(&pq.Error{Code: "23P01"}))
	assert.False(t, IsSerializationFailure(ErrOverlap))
	assert.False(t, IsSerializationFailure(&pq.Error{Code: "23505"}))
}
