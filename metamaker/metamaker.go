// Package metamaker builds Git commit/tag authorship and message metadata
// out of SVN revision properties, a user map, and a small set of
// Go text/template message templates — the MetaMaker seam a stage2 commit
// emitter calls once per revision/branch pair it turns into a Git commit
// or tag.
package metamaker

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/rcowham/svn2git/usermap"
)

// Signature is a Git author/committer/tagger identity plus timestamp.
type Signature struct {
	Name  string
	Email string
	Time  time.Time
}

// CommitMeta is the metadata needed to emit a Git commit object.
type CommitMeta struct {
	Author    Signature
	Committer Signature
	Message   string
}

// TagMeta is the metadata needed to emit a Git annotated tag object.
type TagMeta struct {
	Tagger  *Signature
	Message string
}

// MetaMaker renders commit/tag metadata from SVN revision properties.
type MetaMaker struct {
	userMap          *usermap.UserMap
	userFallbackTmpl *template.Template
	commitMsgTmpl    *template.Template
	tagMsgTmpl       *template.Template
}

// New compiles the three message templates. Each template sees a
// templateCtx value as its data.
func New(userMap *usermap.UserMap, userFallbackTemplate, commitMsgTemplate, tagMsgTemplate string) (*MetaMaker, error) {
	userFallbackTmpl, err := template.New("user_fallback").Option("missingkey=error").Parse(userFallbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("metamaker: failed to parse user fallback template: %w", err)
	}
	commitMsgTmpl, err := template.New("commit_msg").Option("missingkey=error").Parse(commitMsgTemplate)
	if err != nil {
		return nil, fmt.Errorf("metamaker: failed to parse commit message template: %w", err)
	}
	tagMsgTmpl, err := template.New("tag_msg").Option("missingkey=error").Parse(tagMsgTemplate)
	if err != nil {
		return nil, fmt.Errorf("metamaker: failed to parse tag message template: %w", err)
	}
	return &MetaMaker{
		userMap:          userMap,
		userFallbackTmpl: userFallbackTmpl,
		commitMsgTmpl:    commitMsgTmpl,
		tagMsgTmpl:       tagMsgTmpl,
	}, nil
}

// templateCtx is the data exposed to every message/fallback-author template.
type templateCtx struct {
	SVNUUID           string
	SVNRev            uint32
	SVNAuthor         string
	SVNLog            string
	SVNPath           string
	MappedAuthorName  string
	MappedAuthorEmail string
}

func newTemplateCtx(uuid string, revNo uint32, path string, revProps map[string]string, userMap *usermap.UserMap) templateCtx {
	svnAuthor := revProps["svn:author"]
	svnLog := revProps["svn:log"]

	var name, email string
	if svnAuthor != "" {
		name, email, _ = userMap.Get(svnAuthor, revNo)
	}

	return templateCtx{
		SVNUUID:           uuid,
		SVNRev:            revNo,
		SVNAuthor:         svnAuthor,
		SVNLog:            svnLog,
		SVNPath:           path,
		MappedAuthorName:  name,
		MappedAuthorEmail: email,
	}
}

// MakeCommitMeta builds the author/committer/message triple for a commit
// on path at revNo.
func (m *MetaMaker) MakeCommitMeta(uuid string, revNo uint32, path string, revProps map[string]string) (CommitMeta, error) {
	ctx := newTemplateCtx(uuid, revNo, path, revProps, m.userMap)

	name, email, err := m.convertAuthor(ctx, revNo, revProps["svn:author"])
	if err != nil {
		return CommitMeta{}, err
	}

	t := extractRevDate(revProps)

	var buf bytes.Buffer
	if err := m.commitMsgTmpl.Execute(&buf, ctx); err != nil {
		return CommitMeta{}, fmt.Errorf("metamaker: failed to render git commit message: %w", err)
	}
	message := strings.ReplaceAll(buf.String(), "\r\n", "\n")

	sig := Signature{Name: name, Email: email, Time: t}
	return CommitMeta{Author: sig, Committer: sig, Message: message}, nil
}

// MakeTagMeta builds the tagger/message pair for a tag of path at revNo.
func (m *MetaMaker) MakeTagMeta(uuid string, revNo uint32, path string, revProps map[string]string) (TagMeta, error) {
	ctx := newTemplateCtx(uuid, revNo, path, revProps, m.userMap)

	name, email, err := m.convertAuthor(ctx, revNo, revProps["svn:author"])
	if err != nil {
		return TagMeta{}, err
	}

	t := extractRevDate(revProps)

	var buf bytes.Buffer
	if err := m.tagMsgTmpl.Execute(&buf, ctx); err != nil {
		return TagMeta{}, fmt.Errorf("metamaker: failed to render git tag message: %w", err)
	}
	message := strings.ReplaceAll(buf.String(), "\r\n", "\n")

	return TagMeta{
		Tagger:  &Signature{Name: name, Email: email, Time: t},
		Message: message,
	}, nil
}

func (m *MetaMaker) convertAuthor(ctx templateCtx, revNo uint32, svnAuthor string) (name, email string, err error) {
	if svnAuthor != "" {
		if n, e, ok := m.userMap.Get(svnAuthor, revNo); ok {
			return n, e, nil
		}
	}

	var buf bytes.Buffer
	if err := m.userFallbackTmpl.Execute(&buf, ctx); err != nil {
		return "", "", fmt.Errorf("metamaker: failed to render fallback author: %w", err)
	}
	name, email, ok := splitAuthorNameEmail(buf.String())
	if !ok {
		return "", "", fmt.Errorf("metamaker: author %q is not in \"name <email>\" format", buf.String())
	}
	return name, email, nil
}

func extractRevDate(revProps map[string]string) time.Time {
	raw, ok := revProps["svn:date"]
	if !ok {
		return time.Unix(0, 0).UTC()
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

func splitAuthorNameEmail(raw string) (name, email string, ok bool) {
	if strings.Contains(raw, "\n") {
		return "", "", false
	}
	i := strings.Index(raw, "<")
	if i < 0 {
		return "", "", false
	}
	name = strings.Trim(raw[:i], " ")
	rest := strings.TrimRight(raw[i+1:], " ")
	if !strings.HasSuffix(rest, ">") {
		return "", "", false
	}
	email = strings.Trim(strings.TrimSuffix(rest, ">"), " ")
	return name, email, true
}
