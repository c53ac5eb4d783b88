package version

import "testing"

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"dev", "none", "unknown", "dev (development build)"},
		{"", "abc", "2026-01-02", "dev (development build)"},
		{"v0.3.0", "1a2b3c4", "2026-10-01", "v0.3.0 (commit: 1a2b3c4, built: 2026-10-01)"},
	}

	for _, tt := range tests {
		if got := FormatVersion(tt.version, tt.commit, tt.date); got != tt.want {
			t.Errorf("FormatVersion(%q, %q, %q) = %q, want %q", tt.version, tt.commit, tt.date, got, tt.want)
		}
	}
}

func TestGetVersionComponents(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = old[0], old[1], old[2] })

	Version, Commit, Date = "v1.0.0", "deadbee", "2026-10-17"
	v, c, d := GetVersionComponents()
	if v != "v1.0.0" || c != "deadbee" || d != "2026-10-17" {
		t.Errorf("GetVersionComponents() = %q, %q, %q", v, c, d)
	}
	if GetVersion() != "v1.0.0 (commit: deadbee, built: 2026-10-17)" {
		t.Errorf("GetVersion() = %q", GetVersion())
	}
}
