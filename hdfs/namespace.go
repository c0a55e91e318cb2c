package hdfs

import (
	"fmt"
	"net/http"
	"os"
	pathpkg "path"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBlockSize   int64 = 128 << 20
	DefaultReplication int16 = 3

	defaultFilePermission os.FileMode = 0644
	defaultGroup                      = "supergroup"
)

// Folder is a directory node of the emulator's namespace tree.
type Folder struct {
	Name    string
	Folders []*Folder
	Files   []*File

	Owner            string
	Group            string
	Permission       os.FileMode
	ModificationTime int64
}

type File struct {
	Name        string
	Data        []byte
	Replication int16
	BlockSize   int64

	Owner            string
	Group            string
	Permission       os.FileMode
	AccessTime       int64
	ModificationTime int64
}

// Namespace is the in-memory metadata of the emulator NameNode.
type Namespace struct {
	mu   sync.RWMutex
	Root *Folder

	Owner string
	Group string
	now   func() time.Time
}

// NewNamespace returns a namespace holding only "/".
func NewNamespace(owner, group string) *Namespace {
	if owner == "" {
		owner = DefaultUser
	}
	if group == "" {
		group = defaultGroup
	}
	ns := &Namespace{Owner: owner, Group: group, now: time.Now}
	ns.Root = &Folder{
		Owner:            owner,
		Group:            group,
		Permission:       0755,
		ModificationTime: ns.millis(),
	}
	return ns
}

func (ns *Namespace) millis() int64 {
	return ns.now().UnixMilli()
}

/** namespace errors, answered as a RemoteException **/

type namespaceError struct {
	status int
	remote RemoteException
}

func (e *namespaceError) Error() string {
	return e.remote.Error()
}

func errFileNotFound(p string) error {
	return &namespaceError{http.StatusNotFound, RemoteException{
		Exception:     "FileNotFoundException",
		JavaClassName: "java.io.FileNotFoundException",
		Message:       "File does not exist: " + p,
	}}
}

func errNotDirectory(p string) error {
	return &namespaceError{http.StatusForbidden, RemoteException{
		Exception:     "ParentNotDirectoryException",
		JavaClassName: "org.apache.hadoop.fs.ParentNotDirectoryException",
		Message:       p + " (is not a directory)",
	}}
}

func errNotEmpty(p string) error {
	return &namespaceError{http.StatusForbidden, RemoteException{
		Exception:     "PathIsNotEmptyDirectoryException",
		JavaClassName: "org.apache.hadoop.fs.PathIsNotEmptyDirectoryException",
		Message:       "`" + p + " is non empty': Directory is not empty",
	}}
}

func errIllegalArgument(msg string) error {
	return &namespaceError{http.StatusBadRequest, RemoteException{
		Exception:     "IllegalArgumentException",
		JavaClassName: "java.lang.IllegalArgumentException",
		Message:       msg,
	}}
}

// splitPath cleans an absolute path into its components; "/" gives none.
func splitPath(p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, errIllegalArgument("Invalid path name " + p)
	}
	clean := pathpkg.Clean(p)
	if clean == "/" {
		return nil, nil
	}
	return strings.Split(clean[1:], "/"), nil
}

func (node *Folder) folder(name string) *Folder {
	for _, f := range node.Folders {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (node *Folder) file(name string) *File {
	for _, f := range node.Files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (node *Folder) isEmpty() bool {
	return len(node.Folders) == 0 && len(node.Files) == 0
}

func (node *Folder) removeFolder(name string) {
	for i, f := range node.Folders {
		if f.Name == name {
			node.Folders = append(node.Folders[:i], node.Folders[i+1:]...)
			return
		}
	}
}

func (node *Folder) removeFile(name string) {
	for i, f := range node.Files {
		if f.Name == name {
			node.Files = append(node.Files[:i], node.Files[i+1:]...)
			return
		}
	}
}

// parent walks to the folder holding the last component. A nil folder means
// some ancestor is missing.
func (ns *Namespace) parent(parts []string) (*Folder, error) {
	node := ns.Root
	for i, step := range parts[:len(parts)-1] {
		next := node.folder(step)
		if next == nil {
			if node.file(step) != nil {
				return nil, errNotDirectory("/" + strings.Join(parts[:i+1], "/"))
			}
			return nil, nil
		}
		node = next
	}
	return node, nil
}

// lookup returns exactly one of folder or file, or errFileNotFound.
func (ns *Namespace) lookup(p string) (*Folder, *File, error) {
	parts, err := splitPath(p)
	if err != nil {
		return nil, nil, err
	}
	if len(parts) == 0 {
		return ns.Root, nil, nil
	}
	dir, err := ns.parent(parts)
	if err != nil || dir == nil {
		return nil, nil, errFileNotFound(p)
	}
	name := parts[len(parts)-1]
	if f := dir.folder(name); f != nil {
		return f, nil, nil
	}
	if f := dir.file(name); f != nil {
		return nil, f, nil
	}
	return nil, nil, errFileNotFound(p)
}

func folderStatus(f *Folder, suffix string) FileStatus {
	return FileStatus{
		Group:            f.Group,
		ModificationTime: f.ModificationTime,
		Owner:            f.Owner,
		PathSuffix:       suffix,
		Permission:       FormatPermission(f.Permission),
		Type:             TypeDirectory,
	}
}

func fileStatus(f *File, suffix string) FileStatus {
	return FileStatus{
		AccessTime:       f.AccessTime,
		BlockSize:        f.BlockSize,
		Group:            f.Group,
		Length:           int64(len(f.Data)),
		ModificationTime: f.ModificationTime,
		Owner:            f.Owner,
		PathSuffix:       suffix,
		Permission:       FormatPermission(f.Permission),
		Replication:      f.Replication,
		Type:             TypeFile,
	}
}

// Status answers GETFILESTATUS; pathSuffix is always empty.
func (ns *Namespace) Status(p string) (FileStatus, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	dir, file, err := ns.lookup(p)
	if err != nil {
		return FileStatus{}, err
	}
	if dir != nil {
		return folderStatus(dir, ""), nil
	}
	return fileStatus(file, ""), nil
}

// List answers LISTSTATUS: the children sorted by name, or the file itself.
func (ns *Namespace) List(p string) ([]FileStatus, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	dir, file, err := ns.lookup(p)
	if err != nil {
		return nil, err
	}
	if file != nil {
		return []FileStatus{fileStatus(file, "")}, nil
	}

	statuses := make([]FileStatus, 0, len(dir.Folders)+len(dir.Files))
	for _, f := range dir.Folders {
		statuses = append(statuses, folderStatus(f, f.Name))
	}
	for _, f := range dir.Files {
		statuses = append(statuses, fileStatus(f, f.Name))
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].PathSuffix < statuses[j].PathSuffix
	})
	return statuses, nil
}

// Mkdirs creates p and its missing parents. Existing directories are fine,
// a file anywhere on the way is not.
func (ns *Namespace) Mkdirs(p string, perm os.FileMode, owner string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	parts, err := splitPath(p)
	if err != nil {
		return err
	}
	if owner == "" {
		owner = ns.Owner
	}
	_, err = ns.mkdirs(parts, perm, owner)
	return err
}

func (ns *Namespace) mkdirs(parts []string, perm os.FileMode, owner string) (*Folder, error) {
	node := ns.Root
	for i, step := range parts {
		if node.file(step) != nil {
			return nil, errNotDirectory("/" + strings.Join(parts[:i+1], "/"))
		}
		next := node.folder(step)
		if next == nil {
			next = &Folder{
				Name:             step,
				Owner:            owner,
				Group:            ns.Group,
				Permission:       perm,
				ModificationTime: ns.millis(),
			}
			node.Folders = append(node.Folders, next)
			node.ModificationTime = next.ModificationTime
		}
		node = next
	}
	return node, nil
}

// Rename follows HDFS rename semantics: false when the source is missing,
// the destination's parent is missing, or the destination is taken. An
// existing destination directory receives the source under its own name.
func (ns *Namespace) Rename(src, dst string) (bool, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	srcParts, err := splitPath(src)
	if err != nil {
		return false, err
	}
	dstParts, err := splitPath(dst)
	if err != nil {
		return false, err
	}
	if len(srcParts) == 0 {
		return false, nil
	}
	srcClean, dstClean := "/"+strings.Join(srcParts, "/"), "/"+strings.Join(dstParts, "/")
	if srcClean == dstClean {
		_, _, err := ns.lookup(srcClean)
		return err == nil, nil
	}
	if strings.HasPrefix(dstClean+"/", srcClean+"/") {
		return false, nil
	}

	srcDir, err := ns.parent(srcParts)
	if err != nil || srcDir == nil {
		return false, nil
	}
	name := srcParts[len(srcParts)-1]
	folder, file := srcDir.folder(name), srcDir.file(name)
	if folder == nil && file == nil {
		return false, nil
	}

	// resolve the destination directory and final name
	var dstDir *Folder
	newName := name
	if len(dstParts) == 0 {
		dstDir = ns.Root
	} else {
		parent, err := ns.parent(dstParts)
		if err != nil || parent == nil {
			return false, nil
		}
		last := dstParts[len(dstParts)-1]
		switch {
		case parent.folder(last) != nil:
			dstDir = parent.folder(last)
		case parent.file(last) != nil:
			return false, nil
		default:
			dstDir, newName = parent, last
		}
	}
	if dstDir.folder(newName) != nil || dstDir.file(newName) != nil {
		return false, nil
	}

	now := ns.millis()
	if folder != nil {
		srcDir.removeFolder(name)
		folder.Name = newName
		dstDir.Folders = append(dstDir.Folders, folder)
	} else {
		srcDir.removeFile(name)
		file.Name = newName
		dstDir.Files = append(dstDir.Files, file)
	}
	srcDir.ModificationTime, dstDir.ModificationTime = now, now
	return true, nil
}

// Delete removes p. A missing path gives false; a non-empty directory
// without recursive is an error.
func (ns *Namespace) Delete(p string, recursive bool) (bool, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	parts, err := splitPath(p)
	if err != nil {
		return false, err
	}
	if len(parts) == 0 {
		return false, nil
	}
	dir, err := ns.parent(parts)
	if err != nil || dir == nil {
		return false, nil
	}
	name := parts[len(parts)-1]
	if f := dir.folder(name); f != nil {
		if !f.isEmpty() && !recursive {
			return false, errNotEmpty(p)
		}
		dir.removeFolder(name)
	} else if dir.file(name) != nil {
		dir.removeFile(name)
	} else {
		return false, nil
	}
	dir.ModificationTime = ns.millis()
	return true, nil
}

// SetReplication only applies to files; directories give false.
func (ns *Namespace) SetReplication(p string, rf int16) (bool, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if rf < 1 {
		return false, errIllegalArgument(fmt.Sprintf("Invalid value for webhdfs parameter \"replication\": %d", rf))
	}
	_, file, err := ns.lookup(p)
	if err != nil {
		if nsErr, ok := err.(*namespaceError); ok && nsErr.status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	if file == nil {
		return false, nil
	}
	file.Replication = rf
	return true, nil
}

// PutFile creates or overwrites a file, creating missing parents.
func (ns *Namespace) PutFile(p string, data []byte, rf int16) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	parts, err := splitPath(p)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return errIllegalArgument("cannot write to /")
	}
	if rf <= 0 {
		rf = DefaultReplication
	}
	dir, err := ns.mkdirs(parts[:len(parts)-1], 0755, ns.Owner)
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]
	if dir.folder(name) != nil {
		return errIllegalArgument(p + " is a directory")
	}

	now := ns.millis()
	file := dir.file(name)
	if file == nil {
		file = &File{
			Name:       name,
			Owner:      ns.Owner,
			Group:      ns.Group,
			Permission: defaultFilePermission,
			BlockSize:  DefaultBlockSize,
		}
		dir.Files = append(dir.Files, file)
	}
	file.Data = append([]byte(nil), data...)
	file.Replication = rf
	file.AccessTime, file.ModificationTime = now, now
	dir.ModificationTime = now
	return nil
}

// ReadFile returns a copy of a file's content and its block size.
func (ns *Namespace) ReadFile(p string) ([]byte, int64, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	_, file, err := ns.lookup(p)
	if err != nil {
		return nil, 0, err
	}
	if file == nil {
		return nil, 0, errFileNotFound(p + " (is a directory)")
	}
	return append([]byte(nil), file.Data...), file.BlockSize, nil
}

/** YAML fixtures **/

// Fixture seeds a namespace:
//
//	owner: hadoop
//	group: supergroup
//	entries:
//	  - path: /user/hadoop
//	    type: DIRECTORY
//	  - path: /user/hadoop/a.txt
//	    content: hello
//	    replication: 2
type Fixture struct {
	Owner   string         `yaml:"owner"`
	Group   string         `yaml:"group"`
	Entries []FixtureEntry `yaml:"entries"`
}

type FixtureEntry struct {
	Path        string   `yaml:"path"`
	Type        FileType `yaml:"type"`
	Content     string   `yaml:"content"`
	Replication int16    `yaml:"replication"`
	Permission  string   `yaml:"permission"`
	Owner       string   `yaml:"owner"`
	Group       string   `yaml:"group"`
}

// LoadFixture reads a YAML fixture file into a fresh namespace.
func LoadFixture(path string) (*Namespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("unmarshal fixture %s: %w", path, err)
	}
	ns, err := fx.Namespace()
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return ns, nil
}

// Namespace builds the tree described by the fixture, in entry order.
func (fx *Fixture) Namespace() (*Namespace, error) {
	ns := NewNamespace(fx.Owner, fx.Group)
	for _, e := range fx.Entries {
		var perm os.FileMode
		if e.Permission != "" {
			v, err := ParsePermission(e.Permission)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Path, err)
			}
			perm = v
		}

		switch e.Type {
		case TypeDirectory:
			if perm == 0 {
				perm = 0755
			}
			if err := ns.Mkdirs(e.Path, perm, e.Owner); err != nil {
				return nil, err
			}
		case TypeFile, "":
			if err := ns.PutFile(e.Path, []byte(e.Content), e.Replication); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s: unsupported type %q", e.Path, e.Type)
		}
		if err := ns.chown(e.Path, perm, e.Owner, e.Group); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

func (ns *Namespace) chown(p string, perm os.FileMode, owner, group string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	dir, file, err := ns.lookup(p)
	if err != nil {
		return err
	}
	if dir != nil {
		if owner != "" {
			dir.Owner = owner
		}
		if group != "" {
			dir.Group = group
		}
		return nil
	}
	if perm != 0 {
		file.Permission = perm
	}
	if owner != "" {
		file.Owner = owner
	}
	if group != "" {
		file.Group = group
	}
	return nil
}
