package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimAndUnclaim(t *testing.T) {
	r := NewRegistry(true)

	_, _, err := r.Claim("22", "alice")
	require.NoError(t, err)
	assert.True(t, r.IsClaimed("22"))

	_, err = r.Unclaim("22")
	require.NoError(t, err)

	_, err = r.Unclaim("22")
	assert.ErrorIs(t, err, ErrNotClaimed)
	assert.Empty(t, r.List())
}

func TestClaimOverwritePolicy(t *testing.T) {
	tests := []struct {
		name           string
		allowOverwrite bool
		expectedHolder string
		expectErr      bool
	}{
		{"OverwriteAllowed", true, "bob", false},
		{"OverwriteDisabled", false, "alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.allowOverwrite)
			_, _, err := r.Claim("22", "alice")
			require.NoError(t, err)

			_, previous, err := r.Claim("22", "bob")
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrAlreadyClaimed)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "alice", previous)
			}

			holder, ok := r.Holder("22")
			require.True(t, ok)
			assert.Equal(t, tt.expectedHolder, holder.UserID)
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestReclaimBySameUserIsNoOp(t *testing.T) {
	r := NewRegistry(false)
	first, _, err := r.Claim("22", "alice")
	require.NoError(t, err)

	again, previous, err := r.Claim("22", "alice")
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Equal(t, first, again)
}

func TestListKeepsInsertionOrder(t *testing.T) {
	r := NewRegistry(true)
	for _, id := range []string{"30", "4", "100", "2"} {
		_, _, err := r.Claim(id, "u"+id)
		require.NoError(t, err)
	}
	_, err := r.Unclaim("4")
	require.NoError(t, err)
	// overwrite keeps the original position
	_, _, err = r.Claim("30", "other")
	require.NoError(t, err)

	var ids []string
	for _, c := range r.List() {
		ids = append(ids, c.MemberID)
	}
	assert.Equal(t, []string{"30", "100", "2"}, ids)
}

func TestClearAll(t *testing.T) {
	r := NewRegistry(true)
	_, _, _ = r.Claim("1", "a")
	_, _, _ = r.Claim("2", "b")

	r.ClearAll()

	assert.Empty(t, r.List())
	assert.False(t, r.IsClaimed("1"))

	_, _, err := r.Claim("1", "c")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}
