package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewActor(t *testing.T) {
	t.Run("drops unknown and duplicate roles", func(t *testing.T) {
		a := NewActor(7, "amina", RoleStockKeeper, Role("janitor"), RoleStockKeeper)
		assert.Equal(t, int64(7), a.ID())
		assert.Equal(t, "amina", a.Name())
		assert.Equal(t, []Role{RoleStockKeeper}, a.Roles())
	})

	t.Run("roles slice is a copy", func(t *testing.T) {
		a := NewActor(1, "x", RoleSeller)
		roles := a.Roles()
		roles[0] = RoleSuperAdmin
		assert.False(t, a.IsSuperAdmin())
	})

	t.Run("zero actor", func(t *testing.T) {
		assert.True(t, Actor{}.IsZero())
		assert.False(t, NewActor(1, "x").IsZero())
	})
}

func TestActor_Can(t *testing.T) {
	keeper := NewActor(1, "keeper", RoleStockKeeper)
	admin := NewActor(2, "admin", RoleSuperAdmin)
	seller := NewActor(3, "seller", RoleSeller)

	assert.True(t, keeper.Can(RoleStockKeeper, RolePackagingAgent))
	assert.False(t, seller.Can(RoleStockKeeper))
	assert.True(t, admin.Can(RoleDeliveryAgent))
	assert.True(t, admin.Can())
	assert.False(t, keeper.Can())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"Stock Keeper", RoleStockKeeper, true},
		{"call-center-manager", RoleCallCenterManager, true},
		{"SUPER_ADMIN", RoleSuperAdmin, true},
		{"courier", Role("courier"), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
