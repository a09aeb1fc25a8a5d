package leantime

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/leanmobile/leanbridge/internal/normalize"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// projectUpdateCommentType marks a comment as a project status update
// rather than a plain discussion comment.
const projectUpdateCommentType = "2"

// ProjectUpdates fetches a project's status updates, newest first.
//
// The comment listing is messy across versions: some return every
// comment type, some leak rows from other projects. Rows tagged with
// the update comment type are preferred when any exist, and any row
// that names a different project in moduleId/entityId/projectId is
// dropped. Rows that name no project at all are kept — old versions
// omit the columns entirely.
func (s *Service) ProjectUpdates(ctx context.Context, src upstream.CredentialSource, projectID string) ([]Comment, error) {
	entityID, _ := strconv.Atoi(projectID)
	raw, err := s.comments.Invoke(ctx, s.caller, src, "getComments", map[string]any{
		"module":   "project",
		"entityId": entityID,
	})
	if err != nil {
		return nil, err
	}

	seq := normalize.ToSequence(raw)
	all := make([]Comment, 0, len(seq))
	for _, item := range seq {
		var c Comment
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		all = append(all, c)
	}

	updates := make([]Comment, 0, len(all))
	for _, c := range all {
		if c.CommentType.String() == projectUpdateCommentType {
			updates = append(updates, c)
		}
	}
	if len(updates) == 0 {
		updates = all
	}

	filtered := updates[:0]
	for _, c := range updates {
		if belongsToProject(c, projectID) {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(a, b int) bool {
		return filtered[a].Date > filtered[b].Date
	})
	return filtered, nil
}

func belongsToProject(c Comment, projectID string) bool {
	for _, field := range []Flex{c.ModuleID, c.EntityID, c.ProjectID} {
		if field != "" && field.String() != projectID {
			return false
		}
	}
	return true
}

// AddProjectUpdate posts a status update. The text is HTML-escaped and
// wrapped in a paragraph because the upstream stores comment bodies as
// HTML and renders them unsanitized.
func (s *Service) AddProjectUpdate(ctx context.Context, src upstream.CredentialSource, projectID, projectName, text string, health int) (json.RawMessage, error) {
	return s.comments.Invoke(ctx, s.caller, src, "addComment", map[string]any{
		"values": map[string]any{
			"text":        paragraph(text),
			"father":      0,
			"status":      strconv.Itoa(health),
			"commentType": 2,
		},
		"module":   "project",
		"entityId": projectID,
		"entity":   map[string]any{"name": projectName, "id": projectID},
	})
}

// EditProjectUpdate replaces an update's text.
func (s *Service) EditProjectUpdate(ctx context.Context, src upstream.CredentialSource, commentID, text string) error {
	_, err := s.comments.Invoke(ctx, s.caller, src, "editComment", map[string]any{
		"values": map[string]any{"text": paragraph(text)},
		"id":     commentID,
	})
	return err
}

// DeleteProjectUpdate removes an update.
func (s *Service) DeleteProjectUpdate(ctx context.Context, src upstream.CredentialSource, commentID string) error {
	_, err := s.comments.Invoke(ctx, s.caller, src, "deleteComment", map[string]any{
		"commentId": commentID,
	})
	return err
}

func paragraph(text string) string {
	escaped := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(text)
	return "<p>" + escaped + "</p>"
}

// AuthorName resolves who wrote a comment. Upstream versions scatter
// the author across many fields; the cascade tries the richest first
// and degrades to a numbered placeholder rather than an empty string
// when only an unknown user id survives.
func AuthorName(c Comment, users []User) string {
	if n := joinName(c.Firstname, c.Lastname); n != "" {
		return n
	}
	if n := joinName(c.UserFirstname, c.UserLastname); n != "" {
		return n
	}
	for _, s := range []string{c.Author, c.CreatedByName, c.UserEmail, c.Email, c.UserName, c.Username} {
		if s != "" {
			return s
		}
	}
	if len(c.UserField) > 0 {
		var plain string
		if json.Unmarshal(c.UserField, &plain) == nil && plain != "" {
			return plain
		}
		var nested struct {
			Email    string `json:"email"`
			Username string `json:"username"`
		}
		if json.Unmarshal(c.UserField, &nested) == nil {
			if nested.Email != "" {
				return nested.Email
			}
			if nested.Username != "" {
				return nested.Username
			}
		}
	}
	uid := c.UserID
	if uid == "" {
		uid = c.CreatedBy
	}
	if uid != "" {
		for _, u := range users {
			if u.ID == uid {
				if n := joinName(u.Firstname, u.Lastname); n != "" {
					return n
				}
				if e := u.EmailAddress(); e != "" {
					return e
				}
				if u.Username != "" {
					return u.Username
				}
				break
			}
		}
		return "Użytkownik #" + uid.String()
	}
	return ""
}
