package stage1

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rcowham/svn2git/objstore"
	"github.com/rcowham/svn2git/svndiff"
	"github.com/rcowham/svn2git/svndump"
	"github.com/rcowham/svn2git/svntree"
)

// applyNode applies one dump node record to the running SVN-tree and
// returns the (slash-trimmed) path it touched.
func (e *Engine) applyNode(rec *svndump.NodeRecord, text []byte) (string, error) {
	path := strings.Trim(rec.Path, "/")

	if rec.Action == svndump.ActionDelete {
		if _, err := e.tree.Rm(path, e.treeStore); err != nil {
			return "", err
		}
		return path, nil
	}

	kind := rec.Kind
	if rec.HasKind && kind == svndump.KindDir {
		return path, e.applyDirNode(rec, path)
	}
	return path, e.applyFileNode(rec, path, text)
}

func (e *Engine) applyDirNode(rec *svndump.NodeRecord, path string) error {
	isNew := rec.Action == svndump.ActionAdd

	if rec.CopyFrom != nil {
		srcRoot, ok := e.revRoots[rec.CopyFrom.Rev]
		if !ok {
			return fmt.Errorf("stage1: copy-from unknown revision %d", rec.CopyFrom.Rev)
		}
		entry, found, err := svntree.Lookup(e.treeStore, srcRoot, rec.CopyFrom.Path)
		if err != nil {
			return err
		}
		if !found || !entry.IsDir {
			return fmt.Errorf("stage1: copy-from source %q@%d is not a directory", rec.CopyFrom.Path, rec.CopyFrom.Rev)
		}
		if err := e.tree.SetDir(path, entry.Dir, e.treeStore); err != nil {
			return err
		}
	} else if isNew {
		if err := e.tree.Mkdir(path, e.treeStore); err != nil {
			return err
		}
	}

	switch {
	case rec.Properties != nil:
		metaOid, err := e.mergeDirProps(path, rec.Properties)
		if err != nil {
			return err
		}
		return e.tree.ModMetadata(path, metaOid, e.treeStore)
	case isNew && rec.CopyFrom == nil:
		return e.tree.ModMetadata(path, objstore.Oid{}, e.treeStore)
	default:
		return nil
	}
}

// mergeDirProps computes the new metadata blob oid for path given a raw
// (possibly delta) property table, merging against the directory's current
// metadata when IsDelta is set.
func (e *Engine) mergeDirProps(path string, props *svndump.NodeProperties) (objstore.Oid, error) {
	if !props.IsDelta {
		final := make(map[string]string, len(props.Properties))
		for k, v := range props.Properties {
			if v != nil {
				final[k] = *v
			}
		}
		return e.treeStore.PutBlob(svntree.EncodeProps(final))
	}

	base := map[string]string{}
	metaOid, ok, err := e.tree.LsMetadata(path, e.treeStore)
	if err != nil {
		return objstore.Oid{}, err
	}
	if ok && !metaOid.IsZero() {
		raw, err := e.treeStore.GetBlob(metaOid)
		if err != nil {
			return objstore.Oid{}, err
		}
		base, err = svntree.DecodeProps(raw)
		if err != nil {
			return objstore.Oid{}, err
		}
	}
	for k, v := range props.Properties {
		if v == nil {
			delete(base, k)
		} else {
			base[k] = *v
		}
	}
	return e.treeStore.PutBlob(svntree.EncodeProps(base))
}

func (e *Engine) applyFileNode(rec *svndump.NodeRecord, path string, text []byte) error {
	var origContent []byte
	var haveOrig bool
	var prevSpecial svntree.FileSpecial
	var prevExec bool
	var haveOrigMode bool

	switch {
	case rec.CopyFrom != nil:
		srcRoot, ok := e.revRoots[rec.CopyFrom.Rev]
		if !ok {
			return fmt.Errorf("stage1: copy-from unknown revision %d", rec.CopyFrom.Rev)
		}
		entry, found, err := svntree.Lookup(e.treeStore, srcRoot, rec.CopyFrom.Path)
		if err != nil {
			return err
		}
		if !found || entry.IsDir {
			return fmt.Errorf("stage1: copy-from source %q@%d is not a file", rec.CopyFrom.Path, rec.CopyFrom.Rev)
		}
		prevSpecial, prevExec = entry.Special, entry.Executable
		haveOrigMode = true
		if !rec.HasText && rec.Properties == nil {
			return e.tree.ModOid(path, prevSpecial, prevExec, entry.FileOid, e.treeStore)
		}
		if !rec.HasText || rec.TextDelta {
			data, err := e.treeStore.GetBlob(entry.FileOid)
			if err != nil {
				return err
			}
			origContent, haveOrig = data, true
		}
	case rec.Action != svndump.ActionAdd:
		special, exec, oid, ok, err := e.tree.LsFile(path, e.treeStore)
		if err != nil {
			return err
		}
		if ok {
			prevSpecial, prevExec = special, exec
			haveOrigMode = true
			if !rec.HasText || rec.TextDelta {
				data, err := e.treeStore.GetBlob(oid)
				if err != nil {
					return err
				}
				origContent, haveOrig = data, true
			}
		}
	}

	special, exec := prevSpecial == svntree.SpecialLink, prevExec
	if rec.Properties != nil {
		var err error
		special, exec, err = applyFilePropDelta(special, exec, rec.Properties)
		if err != nil {
			return fmt.Errorf("stage1: %s: %w", path, err)
		}
	}
	if haveOrigMode && special != (prevSpecial == svntree.SpecialLink) {
		return fmt.Errorf("stage1: %s: unexpected change of symlink/non-symlink", path)
	}

	var content []byte
	switch {
	case rec.HasText && rec.TextDelta:
		source := origContent
		if prevSpecial == svntree.SpecialLink && source != nil {
			source = append([]byte("link "), source...)
		}
		applied, err := svndiff.Apply(source, text)
		if err != nil {
			return err
		}
		content = applied
	case rec.HasText:
		content = text
	case haveOrig:
		content = origContent
	}

	if special {
		content = bytes.TrimPrefix(content, []byte("link "))
	}

	fileSpecial := svntree.SpecialNone
	if special {
		fileSpecial = svntree.SpecialLink
	}

	_, err := e.tree.ModInline(path, fileSpecial, exec, content, e.treeStore)
	return err
}

// applyFilePropDelta derives a file's (special, executable) bits from its
// previous bits plus a raw property table: a full (non-delta) table resets
// both to false before applying whatever keys it lists; a delta table only
// touches the two keys it actually mentions. Explicitly removing
// "svn:special" is never allowed: a symlink can't be turned back into a
// regular file mid-history, so that's reported as an error rather than
// silently flipping the bit.
func applyFilePropDelta(prevSpecial, prevExec bool, props *svndump.NodeProperties) (special, exec bool, err error) {
	special, exec = prevSpecial, prevExec
	if !props.IsDelta {
		special, exec = false, false
	}
	if v, ok := props.Properties["svn:special"]; ok {
		if v == nil {
			return false, false, fmt.Errorf("unexpected change of symlink/non-symlink")
		}
		special = true
	}
	if v, ok := props.Properties["svn:executable"]; ok {
		exec = v != nil
	}
	return special, exec, nil
}
