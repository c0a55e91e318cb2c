package hdfs

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func getNodes(t *testing.T) *Namespace {
	t.Helper()
	ns := NewNamespace("hadoop", "supergroup")
	ns.now = func() time.Time { return time.UnixMilli(1320173277227) }
	if err := ns.Mkdirs("/root/temp", 0755, ""); err != nil {
		t.Fatal(err)
	}
	if err := ns.PutFile("/root/data.txt", []byte("0123456789"), 2); err != nil {
		t.Fatal(err)
	}
	return ns
}

func names(statuses []FileStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s.PathSuffix)
	}
	return out
}

func statusOf(err error) int {
	var nsErr *namespaceError
	if errors.As(err, &nsErr) {
		return nsErr.status
	}
	return 0
}

func TestGetFileStatus(t *testing.T) {
	ns := getNodes(t)

	file, err := ns.Status("/root/data.txt")
	if err != nil {
		t.Fatal(err)
	}
	want := FileStatus{
		AccessTime:       1320173277227,
		BlockSize:        DefaultBlockSize,
		Group:            "supergroup",
		Length:           10,
		ModificationTime: 1320173277227,
		Owner:            "hadoop",
		Permission:       "644",
		Replication:      2,
		Type:             TypeFile,
	}
	if file != want {
		t.Fatalf("status = %+v\nwant %+v", file, want)
	}

	dir, err := ns.Status("/root/temp/")
	if err != nil {
		t.Fatal(err)
	}
	if dir.Type != TypeDirectory || dir.Permission != "755" || dir.Length != 0 {
		t.Fatalf("dir = %+v", dir)
	}

	if _, err := ns.Status("/"); err != nil {
		t.Fatal(err)
	}
	if _, err := ns.Status("/root/nope"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("missing: err = %v", err)
	}
	if _, err := ns.Status("/root/data.txt/below"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("below a file: err = %v", err)
	}
	if _, err := ns.Status("relative"); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("relative: err = %v", err)
	}
}

func TestGetFileList(t *testing.T) {
	ns := getNodes(t)
	ns.PutFile("/root/a", nil, 0)

	list, err := ns.List("/root")
	if err != nil {
		t.Fatal(err)
	}
	if got := names(list); !reflect.DeepEqual(got, []string{"a", "data.txt", "temp"}) {
		t.Fatalf("list = %v", got)
	}

	list, err = ns.List("/root/data.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].PathSuffix != "" || list[0].Type != TypeFile {
		t.Fatalf("file lists itself: %+v", list)
	}

	list, err = ns.List("/root/temp")
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("empty dir = %#v, %v", list, err)
	}
}

func TestMkdirs(t *testing.T) {
	ns := getNodes(t)

	if err := ns.Mkdirs("/root/temp", 0700, ""); err != nil {
		t.Fatalf("existing dir: %v", err)
	}
	if err := ns.Mkdirs("/x/y/z", 0700, "alice"); err != nil {
		t.Fatal(err)
	}
	st, _ := ns.Status("/x/y")
	if st.Owner != "alice" || st.Permission != "700" {
		t.Fatalf("status = %+v", st)
	}

	if err := ns.Mkdirs("/root/data.txt/sub", 0755, ""); statusOf(err) != http.StatusForbidden {
		t.Fatalf("file in the way: err = %v", err)
	}
}

func TestRename(t *testing.T) {
	cases := []struct {
		name     string
		src, dst string
		ok       bool
		gone     string
		present  string
	}{
		{"file to new name", "/root/data.txt", "/root/b.txt", true, "/root/data.txt", "/root/b.txt"},
		{"into existing dir", "/root/data.txt", "/root/temp", true, "/root/data.txt", "/root/temp/data.txt"},
		{"dir to new parent", "/root/temp", "/moved", true, "/root/temp", "/moved"},
		{"missing source", "/root/nope", "/root/b", false, "", ""},
		{"missing dst parent", "/root/data.txt", "/nope/b", false, "", "/root/data.txt"},
		{"dst is a file", "/root/temp", "/root/data.txt", false, "", "/root/temp"},
		{"into itself", "/root", "/root/temp/x", false, "", "/root"},
		{"root", "/", "/x", false, "", ""},
		{"same path", "/root/data.txt", "/root/data.txt", true, "", "/root/data.txt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ns := getNodes(t)
			ok, err := ns.Rename(tc.src, tc.dst)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tc.ok {
				t.Fatalf("rename = %v, want %v", ok, tc.ok)
			}
			if tc.gone != "" {
				if _, err := ns.Status(tc.gone); err == nil {
					t.Errorf("%s still exists", tc.gone)
				}
			}
			if tc.present != "" {
				if _, err := ns.Status(tc.present); err != nil {
					t.Errorf("%s: %v", tc.present, err)
				}
			}
		})
	}
}

func TestDelete(t *testing.T) {
	ns := getNodes(t)

	if ok, err := ns.Delete("/root", false); ok || statusOf(err) != http.StatusForbidden {
		t.Fatalf("non-empty without recursive = %v, %v", ok, err)
	}
	if ok, err := ns.Delete("/root/temp", false); !ok || err != nil {
		t.Fatalf("empty dir = %v, %v", ok, err)
	}
	if ok, err := ns.Delete("/root/nope", false); ok || err != nil {
		t.Fatalf("missing = %v, %v", ok, err)
	}
	if ok, err := ns.Delete("/root", true); !ok || err != nil {
		t.Fatalf("recursive = %v, %v", ok, err)
	}
	if ok, _ := ns.Delete("/", true); ok {
		t.Fatal("root must not be deleted")
	}
	if list, _ := ns.List("/"); len(list) != 0 {
		t.Fatalf("left over: %v", names(list))
	}
}

func TestSetReplication(t *testing.T) {
	ns := getNodes(t)

	if ok, err := ns.SetReplication("/root/data.txt", 5); !ok || err != nil {
		t.Fatalf("file = %v, %v", ok, err)
	}
	st, _ := ns.Status("/root/data.txt")
	if st.Replication != 5 {
		t.Fatalf("replication = %d", st.Replication)
	}
	if ok, err := ns.SetReplication("/root/temp", 5); ok || err != nil {
		t.Fatalf("dir = %v, %v", ok, err)
	}
	if ok, err := ns.SetReplication("/root/nope", 5); ok || err != nil {
		t.Fatalf("missing = %v, %v", ok, err)
	}
	if _, err := ns.SetReplication("/root/data.txt", 0); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("zero: err = %v", err)
	}
}

func TestReadFile(t *testing.T) {
	ns := getNodes(t)

	data, blockSize, err := ns.ReadFile("/root/data.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "0123456789" || blockSize != DefaultBlockSize {
		t.Fatalf("read %q, %d", data, blockSize)
	}
	data[0] = 'x'
	if again, _, _ := ns.ReadFile("/root/data.txt"); string(again) != "0123456789" {
		t.Fatal("ReadFile must return a copy")
	}
	if _, _, err := ns.ReadFile("/root/temp"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("dir: err = %v", err)
	}
}

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	const fixture = `
owner: hdfs
group: hadoop
entries:
  - path: /user/alice
    type: DIRECTORY
    permission: "750"
    owner: alice
  - path: /user/alice/notes.txt
    content: hello world
    replication: 1
    permission: "600"
  - path: /tmp
    type: DIRECTORY
    permission: "1777"
`
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatal(err)
	}

	ns, err := LoadFixture(path)
	if err != nil {
		t.Fatal(err)
	}

	home, err := ns.Status("/user/alice")
	if err != nil {
		t.Fatal(err)
	}
	if home.Owner != "alice" || home.Group != "hadoop" || home.Permission != "750" {
		t.Errorf("home = %+v", home)
	}
	notes, err := ns.Status("/user/alice/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if notes.Owner != "hdfs" || notes.Length != 11 || notes.Replication != 1 || notes.Permission != "600" {
		t.Errorf("notes = %+v", notes)
	}
	if list, _ := ns.List("/"); !reflect.DeepEqual(names(list), []string{"tmp", "user"}) {
		t.Errorf("root = %v", names(list))
	}
}

func TestLoadFixtureErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFixture(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}

	cases := map[string]string{
		"bad yaml":       "entries: [",
		"bad permission": "entries:\n  - path: /a\n    permission: \"9z\"\n",
		"bad type":       "entries:\n  - path: /a\n    type: SYMLINK\n",
		"relative path":  "entries:\n  - path: a\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, "fixture.yaml")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFixture(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
