package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/ferry/internal/transport"
)

func TestParseLocationLocal(t *testing.T) {
	t.Parallel()

	// Each of these names a path on this machine, verbatim.
	for _, in := range []string{
		"/srv/releases",
		"releases/2024",
		"./releases",
		"../releases",
		"notes.txt",
		"/var/log/app:2024-01-01.log",
		"builds/web:latest",
		"./web:latest",
		":orphan",
		"ops@:missing-host",
		`D:\exports\q3.csv`,
		"/srv/releases/",
	} {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			loc := transport.ParseLocation(in)
			assert.Equal(t, transport.Location{Path: in}, loc)
			assert.False(t, loc.IsRemote())
		})
	}
}

func TestParseLocationRemote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want transport.Location
	}{
		{"ops@build01:/srv/out", transport.Location{Host: "build01", User: "ops", Path: "/srv/out"}},
		{"build01:/srv/out", transport.Location{Host: "build01", Path: "/srv/out"}},
		{"ops@build01:out/today", transport.Location{Host: "build01", User: "ops", Path: "out/today"}},
		{"build01:out", transport.Location{Host: "build01", Path: "out"}},
		{"ci@runner.lab.example:/cache", transport.Location{Host: "runner.lab.example", User: "ci", Path: "/cache"}},
		{"build01:", transport.Location{Host: "build01", Path: "."}},
		{"ops@build01:", transport.Location{Host: "build01", User: "ops", Path: "."}},
		{"ssh://deploy@build.internal:2222/srv/out", transport.Location{Host: "build.internal", User: "deploy", Port: 2222, Path: "/srv/out"}},
		{"ssh://box/~/notes", transport.Location{Host: "box", Path: "notes"}},
		{"ssh://box/~", transport.Location{Host: "box", Path: "."}},
		{"ssh://box", transport.Location{Host: "box", Path: "."}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			loc := transport.ParseLocation(tt.in)
			assert.Equal(t, tt.want, loc)
			assert.True(t, loc.IsRemote())
		})
	}
}

func TestParseLocationBadSSHURL(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"ssh://", "ssh://box:notaport/x"} {
		assert.Equal(t, transport.Location{Path: in}, transport.ParseLocation(in), in)
	}
}

func TestLocationString(t *testing.T) {
	t.Parallel()

	tests := map[string]transport.Location{
		"/srv/out":                    {Path: "/srv/out"},
		"ops@build01:/srv/out":        {Host: "build01", User: "ops", Path: "/srv/out"},
		"build01:out":                 {Host: "build01", Path: "out"},
		"ssh://ops@build01:2222/srv":  {Host: "build01", User: "ops", Port: 2222, Path: "/srv"},
		"ssh://build01:2222/relative": {Host: "build01", Port: 2222, Path: "relative"},
	}
	for want, loc := range tests {
		assert.Equal(t, want, loc.String())
	}
}

func TestLocationStringRoundTrips(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"ops@build01:/srv/out", "build01:out", "ssh://ops@build01:2222/srv/out"} {
		assert.Equal(t, in, transport.ParseLocation(in).String())
	}
}
