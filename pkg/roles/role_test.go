package roles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/roles"
)

func TestParse(t *testing.T) {
	t.Parallel()

	r, err := roles.Parse(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, roles.Admin, r)

	r, err = roles.Parse("user")
	require.NoError(t, err)
	assert.Equal(t, roles.User, r)

	_, err = roles.Parse("owner")
	assert.ErrorIs(t, err, roles.ErrInvalidRole)
}

func TestRole_Helpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ADMIN", roles.Admin.Label())
	assert.Equal(t, roles.User, roles.Role("").OrDefault())
	assert.Equal(t, roles.Admin, roles.Admin.OrDefault())
	assert.False(t, roles.Role("root").Valid())
}

func TestAllowList(t *testing.T) {
	t.Parallel()

	al := roles.NewAllowList("Ops@Example.com", "@componenthub.dev", "  ")
	assert.Equal(t, 2, al.Len())

	assert.True(t, al.Allows("ops@example.com"))
	assert.True(t, al.Allows("anyone@ComponentHub.dev"))
	assert.False(t, al.Allows("notadmin@attacker.com"))
	assert.False(t, al.Allows("ops@example.com.attacker.io"))
	assert.False(t, al.Allows(""))

	var nilList *roles.AllowList
	assert.False(t, nilList.Allows("ops@example.com"))
}

func TestParseAllowList(t *testing.T) {
	t.Parallel()

	al, err := roles.ParseAllowList([]byte("admins:\n  - root@example.com\n  - \"@corp.io\"\n"))
	require.NoError(t, err)
	assert.True(t, al.Allows("root@example.com"))
	assert.True(t, al.Allows("x@corp.io"))

	_, err = roles.ParseAllowList([]byte("admins: [unterminated"))
	assert.ErrorIs(t, err, roles.ErrAllowListFile)

	_, err = roles.LoadAllowList("/does/not/exist.yaml")
	assert.ErrorIs(t, err, roles.ErrAllowListFile)
}
