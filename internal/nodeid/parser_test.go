// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    bool
		expectedAddr *Address
	}{
		{
			name:         "plain node",
			rawID:        "datasource",
			expectedAddr: &Address{Node: "datasource"},
		},
		{
			name:         "swept node",
			rawID:        "strip[subjects=0,fracs=15]",
			expectedAddr: New("strip", Coord{"subjects", 0}, Coord{"fracs", 15}),
		},
		{
			name:      "error - empty string",
			rawID:     "",
			expectErr: true,
		},
		{
			name:      "error - empty coordinate list",
			rawID:     "a[]",
			expectErr: true,
		},
		{
			name:      "error - positional index",
			rawID:     "a[0]",
			expectErr: true,
		},
		{
			name:      "error - non numeric index",
			rawID:     "a[b=x]",
			expectErr: true,
		},
		{
			name:      "error - duplicate source",
			rawID:     "a[b=1,b=2]",
			expectErr: true,
		},
		{
			name:      "error - dotted path",
			rawID:     "a.b",
			expectErr: true,
		},
		{
			name:      "error - hyphen only name",
			rawID:     "-",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)
			if tc.expectErr {
				assert.Error(t, err)
				assert.Nil(t, addr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expectedAddr.Equal(addr), "want %s, got %s", tc.expectedAddr, addr)
		})
	}
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, "a[b=1]", MustParse("a[b=1]").String())
	assert.Panics(t, func() { MustParse("a[") })
}
