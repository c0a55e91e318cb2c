package hdfs

import (
	"os"
	"testing"
)

func TestPermission(t *testing.T) {
	for _, tc := range []struct {
		s    string
		mode os.FileMode
	}{
		{"0", 0},
		{"644", 0644},
		{"755", 0755},
		{"1777", os.ModeSticky | 0777},
		{"1755", os.ModeSticky | 0755},
	} {
		mode, err := ParsePermission(tc.s)
		if err != nil {
			t.Fatalf("%s: %v", tc.s, err)
		}
		if mode != tc.mode {
			t.Errorf("parse %s = %v, want %v", tc.s, mode, tc.mode)
		}
		if got := FormatPermission(mode); got != tc.s {
			t.Errorf("format %v = %s, want %s", mode, got, tc.s)
		}
	}

	if got := FormatPermission(01777); got != "1777" {
		t.Errorf("format 01777 = %s", got)
	}
	for _, bad := range []string{"9z", "2000", "-1", ""} {
		if _, err := ParsePermission(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestStatusMode(t *testing.T) {
	st := FileStatus{Type: TypeDirectory, Permission: "1777"}
	if want := os.ModeDir | os.ModeSticky | 0777; st.Mode() != want {
		t.Fatalf("mode = %v, want %v", st.Mode(), want)
	}
	st = FileStatus{Type: TypeFile, Permission: "640"}
	if st.Mode() != 0640 || st.IsDir() {
		t.Fatalf("mode = %v", st.Mode())
	}
}
