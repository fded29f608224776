package model

import (
	"errors"
	"sort"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ErrNotFound is returned by stores when a task or project does not exist.
var ErrNotFound = errors.New("not found")

// Subtask is one step of a project. Subtasks have no identity of their own;
// they are addressed by index within the project.
type Subtask struct {
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
	Importance int    `json:"importance"`
	Completed  bool   `json:"completed"`
}

// Task is a single to-do item. A project is a Task with IsProject set and a
// list of subtasks; its Experience is the sum of its subtasks' base XP.
type Task struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Difficulty    int       `json:"difficulty"`
	Importance    int       `json:"importance"`
	Deadline      *Date     `json:"deadline,omitempty"`
	Label         string    `json:"label,omitempty"`
	Urgent        bool      `json:"urgent"`
	Collaborative bool      `json:"collaborative"`
	Experience    int       `json:"experience"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"createdAt"`

	IsProject  bool      `json:"isProject,omitempty"`
	Subtasks   []Subtask `json:"subtasks,omitempty"`
	IsShared   bool      `json:"isShared,omitempty"`
	OwnerID    string    `json:"ownerId,omitempty"`
	SharedWith []string  `json:"sharedWith,omitempty"`
}

// Project is the collaborative variant of Task.
type Project = Task

// CompletedTask is a frozen snapshot of a task at the moment it was completed.
// CompletedAt may be zero for rows written by older clients; such entries are
// skipped by every time-based computation.
type CompletedTask struct {
	Task
	CompletionID   string    `json:"completionId"`
	CompletedAt    time.Time `json:"completedAt"`
	EarlyBonus     int       `json:"earlyBonus"`
	OverduePenalty int       `json:"overduePenalty"`
}

// TotalXP is the XP this completion contributed, bonus and penalty included.
func (c CompletedTask) TotalXP() int {
	return c.Experience + c.EarlyBonus + c.OverduePenalty
}

// ProjectDetails is the writable part of a project pushed to the remote store.
type ProjectDetails struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Difficulty  int       `json:"difficulty"`
	Importance  int       `json:"importance"`
	Deadline    *Date     `json:"deadline,omitempty"`
	Label       string    `json:"label,omitempty"`
	Urgent      bool      `json:"urgent"`
	Experience  int       `json:"experience"`
	Completed   bool      `json:"completed"`
	Subtasks    []Subtask `json:"subtasks"`
	IsShared    bool      `json:"isShared"`
	OwnerID     string    `json:"ownerId,omitempty"`
	SharedWith  []string  `json:"sharedWith,omitempty"`
}

func (p Project) Details() ProjectDetails {
	return ProjectDetails{
		Name:        p.Name,
		Description: p.Description,
		Difficulty:  p.Difficulty,
		Importance:  p.Importance,
		Deadline:    p.Deadline,
		Label:       p.Label,
		Urgent:      p.Urgent,
		Experience:  p.Experience,
		Completed:   p.Completed,
		Subtasks:    append([]Subtask(nil), p.Subtasks...),
		IsShared:    p.IsShared,
		OwnerID:     p.OwnerID,
		SharedWith:  append([]string(nil), p.SharedWith...),
	}
}

// ApplyDetails overwrites the writable fields of p with d.
func (p *Project) ApplyDetails(d ProjectDetails) {
	p.Name = d.Name
	p.Description = d.Description
	p.Difficulty = d.Difficulty
	p.Importance = d.Importance
	p.Deadline = d.Deadline
	p.Label = d.Label
	p.Urgent = d.Urgent
	p.Experience = d.Experience
	p.Completed = d.Completed
	p.Subtasks = append([]Subtask(nil), d.Subtasks...)
	p.IsShared = d.IsShared
	p.OwnerID = d.OwnerID
	p.SharedWith = append([]string(nil), d.SharedWith...)
	p.IsProject = true
	p.Collaborative = d.IsShared
}

// MarkShared flags the project as shared and guarantees the owner is a member.
func (p *Project) MarkShared(ownerID string) {
	p.IsShared = true
	p.Collaborative = true
	p.OwnerID = ownerID
	p.AddMember(ownerID)
}

// AddMember adds userID to SharedWith unless it is already present.
func (p *Project) AddMember(userID string) {
	if userID == "" {
		return
	}
	for _, id := range p.SharedWith {
		if id == userID {
			return
		}
	}
	p.SharedWith = append(p.SharedWith, userID)
}

// Unshare clears the sharing state; a non-shared project has no members.
func (p *Project) Unshare() {
	p.IsShared = false
	p.Collaborative = false
	p.SharedWith = nil
}

func (p Project) HasMember(userID string) bool {
	for _, id := range p.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (t Task) Clone() Task {
	out := t
	if t.Deadline != nil {
		d := *t.Deadline
		out.Deadline = &d
	}
	out.Subtasks = append([]Subtask(nil), t.Subtasks...)
	out.SharedWith = append([]string(nil), t.SharedWith...)
	return out
}

var projectCmpOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmpopts.EquateApproxTime(time.Millisecond),
	cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".SharedWith"
	}, cmpopts.SortSlices(func(a, b string) bool { return a < b })),
}

// ProjectsEqual reports structural equality of two project snapshots.
// SharedWith is compared as a set and nil slices equal empty ones.
func ProjectsEqual(a, b Project) bool {
	return cmp.Equal(a, b, projectCmpOpts...)
}

// ProjectDiff returns a human-readable diff, empty when the projects are equal.
func ProjectDiff(a, b Project) string {
	return cmp.Diff(a, b, projectCmpOpts...)
}

// SortedMembers returns SharedWith in lexical order.
func (p Project) SortedMembers() []string {
	out := append([]string(nil), p.SharedWith...)
	sort.Strings(out)
	return out
}
