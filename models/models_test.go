package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleSetRoundTrip(t *testing.T) {
	roles := RoleSet{RolePOS, RoleApprover}

	raw, err := roles.Value()
	require.NoError(t, err)

	var got RoleSet
	require.NoError(t, got.Scan(raw))
	assert.Equal(t, roles, got)

	// Some drivers hand back strings
	var fromString RoleSet
	require.NoError(t, fromString.Scan(`["admin"]`))
	assert.True(t, fromString.Has(RoleAdmin))

	assert.True(t, roles.Has(RolePOS))
	assert.False(t, roles.Has(RoleAdmin))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("approver")
	require.NoError(t, err)
	assert.Equal(t, RoleApprover, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}

func TestParseDecision(t *testing.T) {
	for _, ok := range []string{"APPROVED", "REJECTED"} {
		decision, err := ParseDecision(ok)
		require.NoError(t, err)
		assert.True(t, decision.Terminal())
	}

	for _, bad := range []string{"PENDING", "approved", ""} {
		_, err := ParseDecision(bad)
		assert.Error(t, err, "decision %q must be rejected", bad)
	}
}

func TestCapacityRuleCapFor(t *testing.T) {
	rule := CapacityRule{Thirumanjanam: 5, Abhisekam: 0}

	assert.Equal(t, 5, rule.CapFor(CategoryThirumanjanam))
	assert.Equal(t, 0, rule.CapFor(CategoryAbhisekam))
	assert.Equal(t, DefaultDailyCap, rule.CapFor("general"))
	assert.Equal(t, DefaultDailyCap, rule.CapFor(""))
}
