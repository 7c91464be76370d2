package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallerFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"manager wins", map[string]interface{}{"manager_id": "mgr-1", "owner_id": "owner-1"}, "mgr-1"},
		{"owner only", map[string]interface{}{"owner_id": "owner-1"}, "owner-1"},
		{"empty manager falls through", map[string]interface{}{"manager_id": "", "owner_id": "owner-1"}, "owner-1"},
		{"none", map[string]interface{}{"meeting_id": "m-1"}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CallerFromArgs(tt.args))
		})
	}
}

func TestRequiredString(t *testing.T) {
	v, err := RequiredString(map[string]interface{}{"id": "  abc "}, "id")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = RequiredString(map[string]interface{}{"id": "   "}, "id")
	assert.EqualError(t, err, "id is required")

	_, err = RequiredString(map[string]interface{}{"id": 42}, "id")
	assert.Error(t, err)
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{"f": float64(7), "i": 3, "s": "9"}
	assert.Equal(t, 7, IntArg(args, "f", 0))
	assert.Equal(t, 3, IntArg(args, "i", 0))
	assert.Equal(t, 5, IntArg(args, "s", 5))
	assert.Equal(t, 5, IntArg(args, "missing", 5))
}

func TestParseTime(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	want := time.Date(2026, 10, 19, 10, 0, 0, 0, moscow)

	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2026-10-19T10:00:00+03:00", false},
		{"2026-10-19T07:00:00Z", false},
		{"2026-10-19 10:00", false},
		{" 2026-10-19T10:00 ", false},
		{"2026-10-19T10:00:00", false},
		{"19.10.2026 10:00", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, moscow)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestTimeArg(t *testing.T) {
	_, err := TimeArg(map[string]interface{}{}, "start", time.UTC)
	assert.EqualError(t, err, "start is required")

	_, err = TimeArg(map[string]interface{}{"start": "soon"}, "start", time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start: invalid time")
}
