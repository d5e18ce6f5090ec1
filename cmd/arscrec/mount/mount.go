// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mount is the guts of the `arscrec mount` command, which
// exposes a parsed resource table as a read-only FUSE tree: one
// directory per package, one subdirectory per type/configuration, and
// one file per resolved entry.
package mount

import (
	"context"
	"fmt"
	"sync/atomic"
	"syscall"

	"git.lukeshu.com/go/typedsync"
	"github.com/datawire/dlib/dcontext"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/arscrec/arscrec/lib/arsc"
	"github.com/arscrec/arscrec/lib/maps"
)

// node is one precomputed entry of the static tree built from a
// TableChunk at mount time; the table never changes underneath a
// mounted filesystem, so there's nothing to load lazily.
type node struct {
	inode    fuseops.InodeID
	name     string
	isDir    bool
	children []*node
	byName   map[string]*node
	content  []byte
}

type dirHandleState struct {
	n *node
}

type fileHandleState struct {
	n *node
}

// FS is a read-only jacobsa/fuse filesystem backed by a single
// resource table's chunk tree.
type FS struct {
	fuseutil.NotImplementedFileSystem

	root    *node
	byInode map[fuseops.InodeID]*node

	lastHandle  uint64
	dirHandles  typedsync.Map[fuseops.HandleID, *dirHandleState]
	fileHandles typedsync.Map[fuseops.HandleID, *fileHandleState]
}

// MountRO builds a static tree from table and mounts it read-only at
// mountpoint, blocking until the context is cancelled or the
// filesystem is unmounted out from under it.
func MountRO(ctx context.Context, table *arsc.TableChunk, deviceName, mountpoint string) error {
	fs := buildFS(table)

	cfg := &fuse.MountConfig{
		FSName:   deviceName,
		Subtype:  "arscrec",
		ReadOnly: true,
		Options: map[string]string{
			"allow_other": "",
		},
	}
	return fuseMount(ctx, mountpoint, fuseutil.NewFileSystemServer(fs), cfg)
}

func fuseMount(ctx context.Context, mountpoint string, server fuse.Server, cfg *fuse.MountConfig) error {
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		ShutdownOnNonError: true,
	})
	mounted := uint32(1)
	grp.Go("unmount", func(ctx context.Context) error {
		<-ctx.Done()
		var err error
		var gotNil bool
		for atomic.LoadUint32(&mounted) != 0 {
			if _err := fuse.Unmount(mountpoint); _err == nil {
				gotNil = true
			} else if !gotNil {
				err = _err
			}
		}
		if gotNil {
			return nil
		}
		return err
	})
	grp.Go("mount", func(ctx context.Context) error {
		defer atomic.StoreUint32(&mounted, 0)

		cfg.OpContext = ctx
		cfg.ErrorLogger = dlog.StdLogger(ctx, dlog.LogLevelError)
		cfg.DebugLogger = dlog.StdLogger(ctx, dlog.LogLevelDebug)

		mountHandle, err := fuse.Mount(mountpoint, server, cfg)
		if err != nil {
			return err
		}
		dlog.Infof(ctx, "mounted %q", mountpoint)
		return mountHandle.Join(dcontext.HardContext(ctx))
	})
	return grp.Wait()
}

// buildFS walks table once, synthesizing a stable inode for every
// package/type-configuration/entry.
func buildFS(table *arsc.TableChunk) *FS {
	fs := &FS{byInode: make(map[fuseops.InodeID]*node)}
	nextInode := fuseops.InodeID(fuseops.RootInodeID)
	newNode := func(name string, isDir bool) *node {
		nextInode++
		n := &node{inode: nextInode, name: name, isDir: isDir, byName: make(map[string]*node)}
		fs.byInode[n.inode] = n
		return n
	}

	root := &node{inode: fuseops.RootInodeID, name: "", isDir: true, byName: make(map[string]*node)}
	fs.byInode[root.inode] = root
	fs.root = root

	for _, pkg := range table.Packages() {
		pkgName := pkg.Name
		if pkgName == "" {
			pkgName = fmt.Sprintf("pkg%d", pkg.ID)
		}
		pkgDir := newNode(uniqueName(root, pkgName), true)
		addChild(root, pkgDir)

		typeNames := pkg.TypeStringPool()
		keyNames := pkg.KeyStringPool()

		seenTypeIDs := map[uint8]bool{}
		for _, ch := range pkg.Children {
			t, ok := ch.Body.(*arsc.TypeChunk)
			if !ok {
				continue
			}
			seenTypeIDs[t.ID] = true
		}
		for _, id := range maps.SortedKeys(seenTypeIDs) {
			typeName := fmt.Sprintf("type%d", id)
			if typeNames != nil && int(id)-1 >= 0 && int(id)-1 < len(typeNames.Strings) {
				typeName = typeNames.Strings[id-1]
			}
			_, types := pkg.TypesByID(id)
			for _, t := range types {
				locale := t.Config.Locale()
				dirName := typeName
				if locale != "" {
					dirName = fmt.Sprintf("%s-%s", typeName, locale)
				}
				typeDir := newNode(uniqueName(pkgDir, dirName), true)
				addChild(pkgDir, typeDir)

				for idx, e := range t.Entries {
					if !e.Present {
						continue
					}
					keyName := fmt.Sprintf("entry%d", idx)
					if keyNames != nil && int(e.Key) >= 0 && int(e.Key) < len(keyNames.Strings) {
						keyName = keyNames.Strings[e.Key]
					}
					f := newNode(uniqueName(typeDir, keyName), false)
					f.content = []byte(describeEntry(e) + "\n")
					addChild(typeDir, f)
				}
			}
		}
	}

	return fs
}

func addChild(parent, child *node) {
	parent.children = append(parent.children, child)
	parent.byName[child.name] = child
}

// uniqueName disambiguates a candidate name against parent's existing
// children (distinct TypeChunk configurations, or key-pool name
// collisions across sparse/dense layouts, can otherwise collide).
func uniqueName(parent *node, name string) string {
	if _, ok := parent.byName[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s~%d", name, i)
		if _, ok := parent.byName[candidate]; !ok {
			return candidate
		}
	}
}

func describeEntry(e arsc.Entry) string {
	if e.IsComplex() {
		s := fmt.Sprintf("complex entry, parent=%v, %d map entries:\n", e.Parent, len(e.Map))
		for _, m := range e.Map {
			s += fmt.Sprintf("  name=0x%08x type=%v data=0x%x\n", m.Name, m.Value.Type, m.Value.Data)
		}
		return s
	}
	return fmt.Sprintf("type=%v data=0x%x", e.Value.Type, e.Value.Data)
}

func (fs *FS) newHandle() fuseops.HandleID {
	return fuseops.HandleID(atomic.AddUint64(&fs.lastHandle, 1))
}

func (fs *FS) StatFS(_ context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = 4096
	op.IoSize = 4096
	op.Inodes = uint64(len(fs.byInode))
	return nil
}

func (fs *FS) LookUpInode(_ context.Context, op *fuseops.LookUpInodeOp) error {
	parent, ok := fs.byInode[op.Parent]
	if !ok || !parent.isDir {
		return syscall.ENOENT
	}
	child, ok := parent.byName[op.Name]
	if !ok {
		return syscall.ENOENT
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:      child.inode,
		Attributes: fs.attrsFor(child),
	}
	return nil
}

func (fs *FS) GetInodeAttributes(_ context.Context, op *fuseops.GetInodeAttributesOp) error {
	n, ok := fs.byInode[op.Inode]
	if !ok {
		return syscall.ENOENT
	}
	op.Attributes = fs.attrsFor(n)
	return nil
}

func (fs *FS) attrsFor(n *node) fuseops.InodeAttributes {
	if n.isDir {
		return fuseops.InodeAttributes{Nlink: 1, Mode: 0o555 | 0o040000} //nolint:gomnd
	}
	return fuseops.InodeAttributes{Nlink: 1, Size: uint64(len(n.content)), Mode: 0o444} //nolint:gomnd
}

func (fs *FS) OpenDir(_ context.Context, op *fuseops.OpenDirOp) error {
	n, ok := fs.byInode[op.Inode]
	if !ok || !n.isDir {
		return syscall.ENOENT
	}
	handle := fs.newHandle()
	fs.dirHandles.Store(handle, &dirHandleState{n: n})
	op.Handle = handle
	return nil
}

func (fs *FS) ReadDir(_ context.Context, op *fuseops.ReadDirOp) error {
	state, ok := fs.dirHandles.Load(op.Handle)
	if !ok {
		return syscall.EBADF
	}
	for i := int(op.Offset); i < len(state.n.children); i++ {
		child := state.n.children[i]
		typ := fuseutil.DT_File
		if child.isDir {
			typ = fuseutil.DT_Directory
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  child.inode,
			Name:   child.name,
			Type:   typ,
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FS) ReleaseDirHandle(_ context.Context, op *fuseops.ReleaseDirHandleOp) error {
	_, ok := fs.dirHandles.LoadAndDelete(op.Handle)
	if !ok {
		return syscall.EBADF
	}
	return nil
}

func (fs *FS) OpenFile(_ context.Context, op *fuseops.OpenFileOp) error {
	n, ok := fs.byInode[op.Inode]
	if !ok || n.isDir {
		return syscall.ENOENT
	}
	handle := fs.newHandle()
	fs.fileHandles.Store(handle, &fileHandleState{n: n})
	op.Handle = handle
	op.KeepPageCache = true
	return nil
}

func (fs *FS) ReadFile(_ context.Context, op *fuseops.ReadFileOp) error {
	state, ok := fs.fileHandles.Load(op.Handle)
	if !ok {
		return syscall.EBADF
	}
	content := state.n.content
	var rest []byte
	if op.Offset < int64(len(content)) {
		rest = content[op.Offset:]
	}
	if op.Dst != nil {
		op.BytesRead = copy(op.Dst, rest)
		return nil
	}
	dat := make([]byte, len(rest))
	copy(dat, rest)
	op.Data = [][]byte{dat}
	op.BytesRead = len(dat)
	return nil
}

func (fs *FS) ReleaseFileHandle(_ context.Context, op *fuseops.ReleaseFileHandleOp) error {
	_, ok := fs.fileHandles.LoadAndDelete(op.Handle)
	if !ok {
		return syscall.EBADF
	}
	return nil
}

func (*FS) Destroy() {}
