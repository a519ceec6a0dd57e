package par2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecoveryFile(t *testing.T) {
	tests := []struct {
		locator   string
		name      string
		exponents *ExponentRange
		wantErr   bool
	}{
		{locator: "/data/set.par2", name: "set"},
		{locator: "set.vol001+02.par2", name: "set", exponents: &ExponentRange{First: 1, Last: 2}},
		{locator: "file:///x/my.movie.vol015+16.PAR2", name: "my.movie", exponents: &ExponentRange{First: 15, Last: 30}},
		{locator: `C:\dir\win.vol7+1.par2`, name: "win", exponents: &ExponentRange{First: 7, Last: 7}},
		{locator: "set.vol003+00.par2", name: "set"},
		{locator: "set.txt", wantErr: true},
		{locator: "set.vol99999999999+01.par2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			rf, err := ParseRecoveryFile(tt.locator)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.locator, rf.Locator)
			assert.Equal(t, tt.name, rf.Name)
			assert.Equal(t, tt.exponents, rf.Exponents)
		})
	}
}

func TestVolumeFileName(t *testing.T) {
	assert.Equal(t, "set.vol001+01.par2", VolumeFileName("set", 1, 1))
	assert.Equal(t, "set.vol004+04.par2", VolumeFileName("set", 4, 4))
	assert.Equal(t, "set.vol1024+512.par2", VolumeFileName("set", 1024, 512))
	assert.Equal(t, "set.par2", IndexFileName("set"))

	rf, err := ParseRecoveryFile(VolumeFileName("set", 8, 8))
	require.NoError(t, err)
	assert.Equal(t, 8, rf.Exponents.Count())
	assert.True(t, rf.Exponents.Contains(15))
	assert.False(t, rf.Exponents.Contains(16))
}
