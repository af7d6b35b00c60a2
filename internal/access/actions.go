package access

import "strings"

// Action names a guarded action class as "object.verb".
type Action string

// Guarded actions.
const (
	ActionContentCreate  Action = "content.create"
	ActionContentUpdate  Action = "content.update"
	ActionContentDelete  Action = "content.delete"
	ActionContentListAll Action = "content.list_all"
	ActionContentSearch  Action = "content.search"

	ActionCommentCreate   Action = "comment.create"
	ActionCommentUpdate   Action = "comment.update"
	ActionCommentDelete   Action = "comment.delete"
	ActionCommentModerate Action = "comment.moderate"
	ActionCommentPending  Action = "comment.pending"

	ActionUserList       Action = "user.list"
	ActionUserDelete     Action = "user.delete"
	ActionAdminDashboard Action = "admin.dashboard"

	ActionCategoryCreate Action = "category.create"
)

// rule describes how an action is evaluated beyond the role policy.
type rule struct {
	// owned actions grant access to the resource owner as well as to the policy roles.
	owned bool
	// notSelf actions are destructive actions that must not target the caller.
	notSelf bool
}

var rules = map[Action]rule{
	ActionContentCreate:   {},
	ActionContentUpdate:   {owned: true},
	ActionContentDelete:   {owned: true},
	ActionContentListAll:  {},
	ActionContentSearch:   {},
	ActionCommentCreate:   {},
	ActionCommentUpdate:   {owned: true},
	ActionCommentDelete:   {owned: true},
	ActionCommentModerate: {},
	ActionCommentPending:  {},
	ActionUserList:        {},
	ActionUserDelete:      {notSelf: true},
	ActionAdminDashboard:  {},
	ActionCategoryCreate:  {},
}

// Known reports whether the action is part of the catalogue.
func (a Action) Known() bool {
	_, ok := rules[a]
	return ok
}

func (a Action) split() (string, string) {
	obj, act, found := strings.Cut(string(a), ".")
	if !found {
		return string(a), ""
	}
	return obj, act
}
