package psqlbuilder

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_UsesDollarPlaceholders(t *testing.T) {
	query, args, err := Select("id").From("appointments").
		Where(squirrel.Eq{"specialist_id": 7}).
		Where(squirrel.Eq{"status": []string{"pending", "confirmed"}}).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM appointments WHERE specialist_id = $1 AND status IN ($2,$3)", query)
	assert.Equal(t, []interface{}{7, "pending", "confirmed"}, args)
}

func TestUpdate_UsesDollarPlaceholders(t *testing.T) {
	query, _, err := Update("appointments").Set("status", "completed").Where(squirrel.Eq{"id": 1}).ToSql()

	require.NoError(t, err)
	assert.Equal(t, "UPDATE appointments SET status = $1 WHERE id = $2", query)
}
