package resolver

import (
	"testing"

	"github.com/matrixci/matrixci/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutPtr(l Layout) *Layout    { return &l }
func boolPtr(b bool) *bool          { return &b }
func profilePtr(p Profile) *Profile { return &p }

func TestResolve_ProtectedTriggersForceFullMatrix(t *testing.T) {
	// Direct pushes and merge-queue checks get maximum coverage no matter
	// which overrides were supplied.
	overrideSets := []struct {
		name      string
		overrides Overrides
	}{
		{name: "no overrides", overrides: Overrides{}},
		{
			name: "single platform override",
			overrides: Overrides{
				Platforms: []Platform{PlatformWindows},
			},
		},
		{
			name: "everything dialed down",
			overrides: Overrides{
				Platforms: []Platform{PlatformMacOS},
				Layout:    layoutPtr(LayoutNone),
				UnitTests: boolPtr(false),
			},
		},
	}

	for _, event := range []trigger.Event{trigger.EventPush, trigger.EventMergeQueue} {
		for _, tc := range overrideSets {
			t.Run(event.String()+"/"+tc.name, func(t *testing.T) {
				cfg := Resolve(Raw{
					Trigger:   trigger.Context{Event: event, Ref: "main"},
					Overrides: tc.overrides,
				})

				assert.Equal(t, AllPlatforms(), cfg.Platforms)
				assert.Equal(t, LayoutAll, cfg.Layout)
				assert.True(t, cfg.UnitTests)
				assert.True(t, cfg.Upload)
			})
		}
	}
}

func TestResolve_ManualDispatchDefaults(t *testing.T) {
	cfg := Resolve(Raw{
		Trigger: trigger.Context{Event: trigger.EventManual, Ref: "main"},
	})

	assert.Equal(t, []Platform{PlatformLinux}, cfg.Platforms)
	assert.Equal(t, LayoutNone, cfg.Layout)
	assert.False(t, cfg.UnitTests)
	assert.Equal(t, ProfileRelease, cfg.Profile)
	assert.False(t, cfg.Upload)
}

func TestResolve_OverridesWinOnUnprotectedTriggers(t *testing.T) {
	cfg := Resolve(Raw{
		Trigger: trigger.Context{Event: trigger.EventPullRequest, Ref: "main", PullRequest: 421},
		Overrides: Overrides{
			Platforms: []Platform{PlatformWindows},
			Layout:    layoutPtr(Layout2020),
			UnitTests: boolPtr(true),
			Profile:   profilePtr(ProfileDebug),
		},
	})

	assert.Equal(t, []Platform{PlatformWindows}, cfg.Platforms)
	assert.Equal(t, Layout2020, cfg.Layout)
	assert.True(t, cfg.UnitTests)
	assert.Equal(t, ProfileDebug, cfg.Profile)
}

func TestResolve_PreResolvedReturnsVerbatim(t *testing.T) {
	// A pre-resolved configuration bypasses defaults and trigger policy
	// completely, including combinations the policy would never produce.
	odd := Config{
		Platforms: []Platform{PlatformMacOS, PlatformWindows},
		Layout:    Layout2013,
		UnitTests: true,
		Profile:   ProfileProduction,
		Upload:    true,
	}

	cfg := Resolve(PreResolved{Config: odd})
	assert.Equal(t, odd, cfg)
}

func TestResolve_Idempotent(t *testing.T) {
	in := Raw{
		Trigger:   trigger.Context{Event: trigger.EventManual, Ref: "main"},
		Overrides: Overrides{Platforms: []Platform{PlatformLinux, PlatformMacOS}},
	}

	first := Resolve(in)
	second := Resolve(in)
	require.Equal(t, first, second)

	// Resolved configurations must not share backing arrays: mutating one
	// result cannot leak into a later resolution.
	first.Platforms[0] = PlatformWindows
	third := Resolve(in)
	assert.Equal(t, second, third)
}

func TestParsePlatformChoice(t *testing.T) {
	testCases := []struct {
		name      string
		choice    string
		expectErr bool
		expected  []Platform
	}{
		{name: "all expands in fixed order", choice: "all", expected: []Platform{PlatformLinux, PlatformWindows, PlatformMacOS}},
		{name: "single linux", choice: "linux", expected: []Platform{PlatformLinux}},
		{name: "single windows", choice: "windows", expected: []Platform{PlatformWindows}},
		{name: "single macos", choice: "macos", expected: []Platform{PlatformMacOS}},
		{name: "unknown is rejected", choice: "beos", expectErr: true},
		{name: "empty is rejected", choice: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePlatformChoice(tc.choice)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLayoutEnables(t *testing.T) {
	assert.True(t, LayoutAll.Enables(Layout2013))
	assert.True(t, LayoutAll.Enables(Layout2020))
	assert.False(t, LayoutAll.Enables(LayoutNone))

	assert.False(t, LayoutNone.Enables(Layout2013))
	assert.False(t, LayoutNone.Enables(Layout2020))

	assert.True(t, Layout2020.Enables(Layout2020))
	assert.False(t, Layout2020.Enables(Layout2013))
	assert.True(t, Layout2013.Enables(Layout2013))
	assert.False(t, Layout2013.Enables(Layout2020))
}

func TestParseEnumsRejectGarbage(t *testing.T) {
	_, err := ParsePlatform("all")
	assert.Error(t, err, "bare platform parser must not accept the matrix choice")

	_, err = ParseLayout("2021")
	assert.Error(t, err)

	_, err = ParseProfile("bench")
	assert.Error(t, err)
}

func TestConfigHasPlatform(t *testing.T) {
	cfg := Config{Platforms: []Platform{PlatformLinux, PlatformMacOS}}
	assert.True(t, cfg.HasPlatform(PlatformLinux))
	assert.True(t, cfg.HasPlatform(PlatformMacOS))
	assert.False(t, cfg.HasPlatform(PlatformWindows))
}
