package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestParseRef(t *testing.T) {
	ref, err := ParseRef(" consultadmin/prod ")
	require.NoError(t, err)
	assert.Equal(t, Ref{Service: "consultadmin", Account: "prod"}, ref)
	assert.Equal(t, "consultadmin/prod", ref.String())

	for _, bad := range []string{"", "consultadmin", "/prod", "consultadmin/"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, "ref %q", bad)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	keyring.MockInit()
	store := NewStore()
	ref := Ref{Service: "consultadmin", Account: "test"}

	_, err := store.GetURI(ref)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetURI(ref, "mongodb://u:p@localhost/app"))
	uri, err := LookupURI("consultadmin/test")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://u:p@localhost/app", uri)

	require.NoError(t, store.SetURI(ref, ""))
	_, err = store.GetURI(ref)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.DeleteURI(ref), "deleting a missing entry")
}
