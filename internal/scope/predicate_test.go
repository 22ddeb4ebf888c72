package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicate_SQL(t *testing.T) {
	t.Run("owner equality", func(t *testing.T) {
		clause, args, next := ownedBy(OwnerColumn, "kevin-id").SQL(3)
		assert.Equal(t, "reseller_id = $3", clause)
		assert.Equal(t, []any{"kevin-id"}, args)
		assert.Equal(t, 4, next)
	})

	t.Run("unrestricted", func(t *testing.T) {
		clause, args, next := Unrestricted().SQL(1)
		assert.Empty(t, clause)
		assert.Empty(t, args)
		assert.Equal(t, 1, next)
	})

	t.Run("zero value matches nothing", func(t *testing.T) {
		var p Predicate
		clause, args, next := p.SQL(1)
		assert.Equal(t, "FALSE", clause)
		assert.Empty(t, args)
		assert.Equal(t, 1, next)
		assert.False(t, p.Matches(""))
		assert.False(t, p.Matches("kevin-id"))
	})
}

func TestPredicate_Matches(t *testing.T) {
	p := ownedBy(OwnerColumn, "kevin-id")
	assert.True(t, p.Matches("kevin-id"))
	assert.False(t, p.Matches("other"))
	assert.False(t, p.Matches(""))
	assert.True(t, Unrestricted().Matches("anyone"))
}

func TestPredicate_StringHidesValue(t *testing.T) {
	assert.Equal(t, "reseller_id = ?", ownedBy(OwnerColumn, "kevin-id").String())
	assert.Equal(t, "unrestricted", Unrestricted().String())
}
