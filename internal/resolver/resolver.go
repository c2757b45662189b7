// Package resolver derives the effective run configuration for a pipeline
// execution. It is deliberately pure: no logging, no I/O, no package state.
// Malformed input never reaches this package; enum parsing happens at the CLI
// boundary and rejects bad values there.
package resolver

import (
	"fmt"

	"github.com/matrixci/matrixci/internal/trigger"
)

// Platform is one build target of the matrix.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformMacOS
)

var platformNames = map[Platform]string{
	PlatformLinux:   "linux",
	PlatformWindows: "windows",
	PlatformMacOS:   "macos",
}

// String returns the canonical name of the platform.
func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// ParsePlatform maps a name to a single Platform. It does not accept "all";
// use ParsePlatformChoice where the full-matrix choice is legal.
func ParsePlatform(name string) (Platform, error) {
	for p, n := range platformNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown platform %q", name)
}

// AllPlatforms returns the full matrix in its fixed order. Callers receive a
// fresh slice on every call so resolved configurations never share backing
// arrays.
func AllPlatforms() []Platform {
	return []Platform{PlatformLinux, PlatformWindows, PlatformMacOS}
}

// ParsePlatformChoice maps a platform choice to the set of platforms it
// selects: either a one-element set, or the full ordered matrix for "all".
func ParsePlatformChoice(name string) ([]Platform, error) {
	if name == "all" {
		return AllPlatforms(), nil
	}
	p, err := ParsePlatform(name)
	if err != nil {
		return nil, err
	}
	return []Platform{p}, nil
}

// Layout selects which rendering-engine test suites a run exercises.
type Layout int

const (
	LayoutNone Layout = iota
	Layout2013
	Layout2020
	LayoutAll
)

var layoutNames = map[Layout]string{
	LayoutNone: "none",
	Layout2013: "2013",
	Layout2020: "2020",
	LayoutAll:  "all",
}

// String returns the canonical name of the layout selection.
func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// ParseLayout maps a name to a Layout.
func ParseLayout(name string) (Layout, error) {
	for l, n := range layoutNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown layout %q", name)
}

// Enables reports whether this selection turns on the given suite variant.
// LayoutAll enables both concrete variants; LayoutNone enables neither.
func (l Layout) Enables(variant Layout) bool {
	switch l {
	case LayoutAll:
		return variant == Layout2013 || variant == Layout2020
	case LayoutNone:
		return false
	default:
		return l == variant
	}
}

// Profile is the build profile handed to every job body.
type Profile int

const (
	ProfileRelease Profile = iota
	ProfileDebug
	ProfileProduction
)

var profileNames = map[Profile]string{
	ProfileRelease:    "release",
	ProfileDebug:      "debug",
	ProfileProduction: "production",
}

// String returns the canonical name of the profile.
func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("profile(%d)", int(p))
}

// ParseProfile maps a name to a Profile.
func ParseProfile(name string) (Profile, error) {
	for p, n := range profileNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown profile %q", name)
}

// Config is the resolved execution plan for one run.
type Config struct {
	// Platforms is the non-empty, ordered set of platforms to build.
	Platforms []Platform
	// Layout selects the rendering-engine test suites to run.
	Layout Layout
	// UnitTests reports whether unit-test jobs run.
	UnitTests bool
	// Profile is the build profile passed through to job bodies.
	Profile Profile
	// Upload reports whether artifact-upload jobs are selected.
	Upload bool
}

// HasPlatform reports whether the platform is part of the resolved matrix.
func (c Config) HasPlatform(p Platform) bool {
	for _, have := range c.Platforms {
		if have == p {
			return true
		}
	}
	return false
}

// Overrides is a partial configuration supplied explicitly by the caller.
// Every field is independently optional; nil means "not supplied".
type Overrides struct {
	Platforms []Platform
	Layout    *Layout
	UnitTests *bool
	Profile   *Profile
	Upload    *bool
}

// Input is the sealed input type of Resolve. It is either a Raw trigger
// context with optional overrides, or a PreResolved configuration that
// bypasses policy entirely.
type Input interface {
	isInput()
}

// Raw asks the resolver to compute a configuration from trigger context and
// optional explicit overrides.
type Raw struct {
	Trigger   trigger.Context
	Overrides Overrides
}

func (Raw) isInput() {}

// PreResolved carries a configuration that an upstream caller already
// resolved. Resolve returns it verbatim.
type PreResolved struct {
	Config Config
}

func (PreResolved) isInput() {}

// Resolve computes the effective run configuration. It is a pure function:
// identical inputs always produce identical outputs and nothing is mutated.
func Resolve(in Input) Config {
	switch v := in.(type) {
	case PreResolved:
		return v.Config
	case Raw:
		return resolveRaw(v)
	default:
		// Input is sealed; this arm exists only to keep the switch total.
		return Config{Platforms: []Platform{PlatformLinux}}
	}
}

func resolveRaw(in Raw) Config {
	cfg := Config{
		Platforms: []Platform{PlatformLinux},
		Layout:    LayoutNone,
		UnitTests: false,
		Profile:   ProfileRelease,
		Upload:    false,
	}

	if len(in.Overrides.Platforms) > 0 {
		cfg.Platforms = append([]Platform(nil), in.Overrides.Platforms...)
	}
	if in.Overrides.Layout != nil {
		cfg.Layout = *in.Overrides.Layout
	}
	if in.Overrides.UnitTests != nil {
		cfg.UnitTests = *in.Overrides.UnitTests
	}
	if in.Overrides.Profile != nil {
		cfg.Profile = *in.Overrides.Profile
	}
	if in.Overrides.Upload != nil {
		cfg.Upload = *in.Overrides.Upload
	}

	// Pushes to tracked branches and merge-queue checks always get maximum
	// coverage, no matter what was asked for explicitly.
	if in.Trigger.Event == trigger.EventPush || in.Trigger.Event == trigger.EventMergeQueue {
		cfg.Platforms = AllPlatforms()
		cfg.Layout = LayoutAll
		cfg.UnitTests = true
		if in.Overrides.Upload == nil {
			cfg.Upload = true
		}
	}

	return cfg
}
