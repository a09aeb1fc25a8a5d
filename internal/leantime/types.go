// Package leantime exposes typed accessors over the upstream JSON-RPC
// surface. Method names and parameter shapes drifted across upstream
// versions, so most operations resolve through fallback chains; results
// are normalized before they reach the handlers.
package leantime

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Flex decodes a JSON string, number, bool or null into a plain string.
// The upstream freely mixes `"id": 7` and `"id": "7"` across versions,
// sometimes within one payload.
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = Flex(n.String())
		return nil
	}
	var truthy bool
	if err := json.Unmarshal(b, &truthy); err == nil {
		if truthy {
			*f = "1"
		} else {
			*f = "0"
		}
		return nil
	}
	return errors.New("unsupported scalar shape")
}

func (f Flex) String() string { return string(f) }

// User is an upstream account as the users listing returns it.
type User struct {
	ID        Flex   `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Username  string `json:"username"`
	Email     string `json:"user"` // the listing calls the email column "user"
	AltEmail  string `json:"email"`
	APIKey    Flex   `json:"apiKey"`
}

// EmailAddress returns whichever email field the upstream populated.
func (u User) EmailAddress() string {
	if u.Email != "" {
		return u.Email
	}
	return u.AltEmail
}

// DisplayName renders a human name, falling back to email or username.
func (u User) DisplayName() string {
	name := joinName(u.Firstname, u.Lastname)
	if name != "" {
		return name
	}
	if e := u.EmailAddress(); e != "" {
		return e
	}
	return u.Username
}

// Project is one upstream project row.
type Project struct {
	ID              Flex   `json:"id"`
	Name            string `json:"name"`
	ProjectName     string `json:"projectName"`
	ClientName      string `json:"clientName"`
	State           Flex   `json:"state"`
	Status          string `json:"status"`
	NumberOfTickets Flex   `json:"numberOfTickets"`
}

// Title returns whichever name field the upstream populated.
func (p Project) Title() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ProjectName
}

// Task is one upstream ticket row. Only the fields the mobile client
// renders are mapped; the raw row is preserved alongside by handlers
// that need passthrough.
type Task struct {
	ID                Flex   `json:"id"`
	Headline          string `json:"headline"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Status            Flex   `json:"status"`
	Priority          string `json:"priority"`
	ProjectID         Flex   `json:"projectId"`
	ProjectName       string `json:"projectName"`
	EditorID          Flex   `json:"editorId"`
	EditorFirstname   string `json:"editorFirstname"`
	EditorLastname    string `json:"editorLastname"`
	UserID            Flex   `json:"userId"`
	UserFirstname     string `json:"userFirstname"`
	UserLastname      string `json:"userLastname"`
	Responsible       string `json:"responsible"`
	DateToFinish      string `json:"dateToFinish"`
	EditFrom          string `json:"editFrom"`
	EditTo            string `json:"editTo"`
	Date              string `json:"date"`
	Tags              string `json:"tags"`
	Type              string `json:"type"`
	MilestoneID       Flex   `json:"milestoneid"`
	MilestoneHeadline string `json:"milestoneHeadline"`
}

// Assignee renders the assigned person, walking the editor*, user* and
// responsible variants older upstreams use interchangeably.
func (t Task) Assignee() string {
	if n := joinName(t.EditorFirstname, t.EditorLastname); n != "" {
		return n
	}
	if n := joinName(t.UserFirstname, t.UserLastname); n != "" {
		return n
	}
	return t.Responsible
}

// Name returns whichever headline field the upstream populated.
func (t Task) Name() string {
	if t.Headline != "" {
		return t.Headline
	}
	return t.Title
}

// Milestone is the slice of a ticket row milestones expose.
type Milestone struct {
	ID       Flex   `json:"id"`
	Headline string `json:"headline"`
	Title    string `json:"title"`
	Type     string `json:"type"`
}

// Comment is one upstream comment row. The author may appear under any
// of a dozen fields depending on version; AuthorName walks them.
type Comment struct {
	ID            Flex            `json:"id"`
	Text          string          `json:"text"`
	Description   string          `json:"description"`
	CommentBody   string          `json:"comment"`
	Content       string          `json:"content"`
	CommentType   Flex            `json:"commentType"`
	Status        Flex            `json:"status"`
	Date          string          `json:"date"`
	Created       string          `json:"created"`
	Modified      string          `json:"modified"`
	ModuleID      Flex            `json:"moduleId"`
	EntityID      Flex            `json:"entityId"`
	ProjectID     Flex            `json:"projectId"`
	UserID        Flex            `json:"userId"`
	UserFirstname string          `json:"userFirstname"`
	UserLastname  string          `json:"userLastname"`
	Firstname     string          `json:"firstname"`
	Lastname      string          `json:"lastname"`
	Author        string          `json:"author"`
	CreatedByName string          `json:"createdByName"`
	UserEmail     string          `json:"userEmail"`
	Email         string          `json:"email"`
	UserName      string          `json:"userName"`
	Username      string          `json:"username"`
	UserField     json.RawMessage `json:"user"`
	CreatedBy     Flex            `json:"createdBy"`
}

// Body returns whichever text field the upstream populated.
func (c Comment) Body() string {
	for _, s := range []string{c.Text, c.Description, c.CommentBody, c.Content} {
		if s != "" {
			return s
		}
	}
	return ""
}

func joinName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}
